package report

import (
	"html/template"
	"io"

	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/store"
)

var funcs = template.FuncMap{
	"pct":   pct,
	"usd":   usd,
	"value": FormatValue,
}

var walletTmpl = template.Must(template.New("wallet").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Wallet Report: {{.Report.Wallet}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #1f2937; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
td, th { border: 1px solid #d1d5db; padding: 4px 10px; text-align: left; }
.label { font-weight: bold; }
.unknown { color: #6b7280; font-style: italic; }
</style>
</head>
<body>
<h1>Wallet Report: {{.Report.Wallet}}</h1>
<p>Strategy: <span class="{{if .Unknown}}unknown{{else}}label{{end}}">{{.Label}}</span>
 &middot; confidence {{pct .Report.Analysis.Confidence}}
 &middot; alpha {{printf "%.3f" .Report.AlphaScore}}</p>
{{with .Report.Analysis}}
<table>
<tr><th>Trades</th><td>{{.TradeCount}} ({{.ClosedCount}} closed)</td></tr>
<tr><th>Markets</th><td>{{.Markets}}</td></tr>
<tr><th>Volume</th><td>{{usd .TotalVolume}}</td></tr>
<tr><th>Realized P&amp;L</th><td>{{usd .TotalPnL}}</td></tr>
<tr><th>Win Rate</th><td>{{pct .WinRate}}</td></tr>
<tr><th>Risk Score</th><td>{{printf "%.1f" .RiskScore}} / 10</td></tr>
<tr><th>Data Excluded</th><td>{{.DataQuality.Excluded}} of {{.DataQuality.Total}}</td></tr>
</table>
{{end}}
<h2>Signals</h2>
{{if .Report.Signals}}<ul>
{{range .Report.Signals}}<li><b>{{.Type}}</b> ({{printf "%.2f" .Strength}}): {{.Description}}</li>
{{end}}</ul>{{else}}<p>No signals detected.</p>{{end}}
{{with .Report.Blueprint}}
<h2>Blueprint: {{.Name}}</h2>
<p>Replicability {{pct .ReplicabilityScore}} &middot; capital {{usd .CapitalRequired}} &middot; {{.Timeframe}} &middot; {{.RiskProfile}}</p>
<table>
<tr><th>Kind</th><th>Condition</th><th>Value</th><th>Confidence</th><th>Evidence</th></tr>
{{range .Rules}}<tr><td>{{.Kind}}</td><td>{{.Condition}}</td><td>{{value .Value}}</td><td>{{pct .Confidence}}</td><td>{{.EvidenceCount}}</td></tr>
{{end}}</table>
{{if .Notes}}<ul>{{range .Notes}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{end}}
</body>
</html>
`))

var recordsTmpl = template.Must(template.New("records").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Watchlist Report</title></head>
<body>
<h1>Watchlist Report</h1>
<table>
<tr><th>Wallet</th><th>Strategy</th><th>Confidence</th><th>Alpha</th><th>Win Rate</th><th>Trades</th><th>P&amp;L</th></tr>
{{range .}}<tr><td>{{.Address}}</td><td>{{.Label}}</td><td>{{pct .Confidence}}</td><td>{{printf "%.3f" .AlphaScore}}</td><td>{{pct .WinRate}}</td><td>{{.TradeCount}}</td><td>{{usd .TotalPnL}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// WriteHTML renders a wallet report as a standalone HTML page.
func WriteHTML(w io.Writer, rep pipeline.Report, minTrades int) error {
	return walletTmpl.Execute(w, struct {
		Report  pipeline.Report
		Label   string
		Unknown bool
	}{rep, Label(rep.Analysis, minTrades), rep.Analysis.StrategyType == store.StrategyUnknown})
}

type labeledRecord struct {
	store.AnalysisRecord
	Label string
}

// WriteRecordsHTML renders the latest persisted analyses.
func WriteRecordsHTML(w io.Writer, records []store.AnalysisRecord, minTrades int) error {
	rows := make([]labeledRecord, len(records))
	for i, r := range records {
		rows[i] = labeledRecord{AnalysisRecord: r, Label: LabelForRecord(r, minTrades)}
	}
	return recordsTmpl.Execute(w, rows)
}
