package services

import (
	"errors"

	apperrors "coffee-eda/internal/errors"
)

func computeDiagnostics(in *input) (Diagnostics, []string) {
	var d Diagnostics
	var warnings []string

	p := splitOthers(in)
	if p.total > 0 {
		d.OthersShare = ptr(p.others / p.total)
	}

	if share, err := categoryShare(in); err != nil {
		warnings = append(warnings, err.Error())
	} else {
		d.CoffeeTeaShare = ptr(share)
	}

	sizes := groupBy(drinkRows(in), bySize)
	if b, ok := sizes.get(in.cfg.UndefinedSize); !ok {
		warnings = append(warnings, apperrors.Lookup("size", in.cfg.UndefinedSize).Error())
	} else {
		d.NotDefinedShare = ptr(float64(b.qty) / sizes.total(qtyOf))
	}

	values, present, _ := weekdayAverages(in)
	var sum float64
	n := 0
	for i, v := range values {
		if present[i] {
			sum += v
			n++
		}
	}
	if n > 0 {
		d.WeekdayMean = ptr(sum / float64(n))
	} else {
		warnings = append(warnings, apperrors.Lookup("weekday", "any configured weekday").Error())
	}

	return d, warnings
}

// categoryShare is the fraction of records in the configured share
// categories. Every one of them must be present.
func categoryShare(in *input) (float64, error) {
	total := in.byCategory.total(countOf)
	var sum float64
	var errs []error
	for _, cat := range in.cfg.ShareCategories {
		b, ok := in.byCategory.get(cat)
		if !ok {
			errs = append(errs, apperrors.Lookup("category", cat))
			continue
		}
		sum += countOf(b)
	}
	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	if total == 0 {
		return 0, apperrors.Lookup("category", "any")
	}
	return sum / total, nil
}
