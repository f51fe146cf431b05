package templates

import (
	"context"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"

	"coffee-eda/internal/charts"
)

// DiagnosticRow is one printed diagnostic. Value is "n/a" when the
// diagnostic could not be computed.
type DiagnosticRow struct {
	Name  string
	Value string
}

type DashboardData struct {
	Title       string
	Source      string
	RecordCount int64
	Version     string
	Figures     []charts.Figure
	Diagnostics []DiagnosticRow
	Warnings    []string
}

// SignalKey is the Datastar signal name under $figures holding figure id.
func SignalKey(id string) string {
	return strings.ReplaceAll(id, "-", "_")
}

// Dashboard renders the single-page dashboard. Figures are embedded for the
// first paint; the refresh button re-pulls them over SSE.
func Dashboard(data DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return dashboardTemplate.Execute(w, data)
	})
}

// DiagnosticsTable renders the element patched by /sse/diagnostics.
func DiagnosticsTable(rows []DiagnosticRow, warnings []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return dashboardTemplate.ExecuteTemplate(w, "diagnostics", struct {
			Diagnostics []DiagnosticRow
			Warnings    []string
		}{rows, warnings})
	})
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"signal": SignalKey,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<script src="https://cdn.jsdelivr.net/npm/@sgratzl/chartjs-chart-boxplot@4.4.4/build/index.umd.min.js"></script>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f7f4f0; color: #2b1d12; }
header { display: flex; align-items: center; justify-content: space-between; padding: 1rem 2rem; background: #4b2e1e; color: #fff; }
header small { opacity: .8; }
main { padding: 1.5rem 2rem; }
.figure { background: #fff; border-radius: 8px; padding: 1rem; margin-bottom: 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
.panels { display: grid; gap: 1rem; }
.panel { position: relative; height: 320px; }
.modern-table { border-collapse: collapse; width: 100%; }
.modern-table th, .modern-table td { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid #e5ddd4; }
.warning { color: #8a4b08; font-size: .9rem; }
button { padding: .5rem 1rem; border: 0; border-radius: 4px; background: #c8a27a; cursor: pointer; }
</style>
</head>
<body data-signals='{"figures": {}}'>
<header>
  <div>
    <h1>{{.Title}}</h1>
    <small>{{.RecordCount}} records from {{.Source}} · {{.Version}}</small>
  </div>
  <button data-on:click="@get('/sse/refresh-all')">Refresh</button>
</header>
<main>
  <section class="figure">
    <h2>Diagnostics</h2>
    {{template "diagnostics" .}}
  </section>
  {{range .Figures}}
  <section class="figure" id="fig-{{.ID}}" data-effect="$figures.{{signal .ID}} && renderFigure($figures.{{signal .ID}})">
    <h2>{{.Title}}</h2>
    <div class="panels" style="grid-template-columns: repeat({{.Cols}}, 1fr)"></div>
  </section>
  {{end}}
  <footer id="charts-pending">Rendering charts…</footer>
</main>
<script>
const palette = ["#4b2e1e", "#c8a27a", "#7a9e7e", "#d9744a", "#5b7db1", "#a05c7b", "#e0c341", "#6b6b6b", "#9c6644"];
const instances = {};

function dataset(s, i, kind) {
  const color = palette[i % palette.length];
  return {
    label: s.name,
    data: s.values,
    yAxisID: s.axis === 1 ? "y2" : "y",
    backgroundColor: kind === "pie" ? s.values.map((_, j) => palette[j % palette.length]) : color,
    borderColor: color,
    type: kind === "line" || (s.axis === 1 && kind === "bar") ? "line" : undefined,
    pointRadius: kind === "line" ? 0 : 3,
  };
}

function chartConfig(p) {
  const type = { bar: "bar", hbar: "bar", "grouped-bar": "bar", line: "line", pie: "pie", box: "boxplot" }[p.kind];
  const series = p.series || [];
  let data;
  if (p.kind === "box") {
    data = {
      labels: p.labels,
      datasets: [{
        label: p.title,
        backgroundColor: palette[1],
        borderColor: palette[0],
        data: (p.boxes || []).map(b => ({ min: b.whisker_low, q1: b.q1, median: b.median, q3: b.q3, max: b.whisker_high, outliers: b.outliers || [] })),
      }],
    };
  } else {
    data = { labels: p.labels, datasets: series.map((s, i) => dataset(s, i, p.kind)) };
  }

  const scales = {};
  if (p.kind !== "pie") {
    scales.x = {
      title: { display: !!p.x_label, text: p.x_label },
      ticks: { maxRotation: p.tick_rotation || 0, minRotation: p.tick_rotation || 0,
               autoSkip: !p.tick_every, callback: function (v, i) {
                 if (p.tick_every && i % p.tick_every !== 0) return null;
                 return this.getLabelForValue(v);
               } },
    };
    scales.y = { title: { display: !!p.y_label, text: p.y_label } };
    if (series.some(s => s.axis === 1)) {
      scales.y2 = { position: "right", grid: { drawOnChartArea: false }, title: { display: !!p.y2_label, text: p.y2_label } };
    }
  }

  const plugins = { title: { display: true, text: p.title }, legend: { display: series.length > 1 || p.kind === "pie" } };
  if (p.kind === "pie" && p.slice_labels) {
    plugins.tooltip = { callbacks: { label: ctx => p.slice_labels[ctx.dataIndex] } };
  }

  return {
    type,
    data,
    options: { animation: false, responsive: true, maintainAspectRatio: false, indexAxis: p.kind === "hbar" ? "y" : "x", scales, plugins },
  };
}

function renderFigure(fig) {
  const root = document.querySelector("#fig-" + fig.id + " .panels");
  (instances[fig.id] || []).forEach(c => c.destroy());
  root.innerHTML = "";
  instances[fig.id] = fig.panels.map(p => {
    const box = document.createElement("div");
    box.className = "panel";
    const canvas = document.createElement("canvas");
    box.appendChild(canvas);
    root.appendChild(box);
    return new Chart(canvas, chartConfig(p));
  });
}

const initialFigures = {{.Figures}};
initialFigures.forEach(renderFigure);
const pending = document.getElementById("charts-pending");
pending.id = "charts-ready";
pending.textContent = "Charts rendered";
</script>
</body>
</html>
{{define "diagnostics"}}<div id="diagnostics-content">
<table class="modern-table">
<thead><tr><th>Diagnostic</th><th>Value</th></tr></thead>
<tbody>
{{range .Diagnostics}}<tr><td>{{.Name}}</td><td><strong>{{.Value}}</strong></td></tr>
{{end}}</tbody>
</table>
{{range .Warnings}}<p class="warning">{{.}}</p>
{{end}}</div>{{end}}
`))
