package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "coffee-eda/internal/errors"
)

// WriteJSON writes v as indented JSON to path, replacing any previous file
// only once the new one is complete.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.InternalWrap(err, "encode "+path)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.IOWrap(err, "create output directory "+dir)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return apperrors.IOWrap(err, "create temp file in "+dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.IOWrap(err, "write "+path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return apperrors.IOWrap(err, "chmod "+path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.IOWrap(err, "close "+path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.IOWrap(err, "replace "+path)
	}
	return nil
}
