// Package report renders pipeline results for people and for downstream tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/store"
)

// Format names accepted by Render.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatConfig   = "config"
	FormatTerminal = "table"
)

// Formats lists every supported output format.
var Formats = []string{FormatTerminal, FormatJSON, FormatMarkdown, FormatHTML, FormatConfig}

// Label is the human-facing strategy label. UNKNOWN is never shown as a
// label: it becomes "insufficient data (n < min)" or "unclassified".
func Label(a analyzer.WalletAnalysis, minTrades int) string {
	if a.StrategyType != store.StrategyUnknown && a.StrategyType != "" {
		return string(a.StrategyType)
	}
	if a.InsufficientData {
		return fmt.Sprintf("insufficient data (n=%d < %d)", a.DataQuality.Usable, minTrades)
	}
	return "unclassified"
}

// LabelForRecord is Label for a persisted analysis row.
func LabelForRecord(r store.AnalysisRecord, minTrades int) string {
	if r.StrategyType != store.StrategyUnknown && r.StrategyType != "" {
		return string(r.StrategyType)
	}
	if r.UsableCount < minTrades {
		return fmt.Sprintf("insufficient data (n=%d < %d)", r.UsableCount, minTrades)
	}
	return "unclassified"
}

// Render writes rep in the named format.
func Render(w io.Writer, format string, rep pipeline.Report, minTrades int) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatMarkdown, "md":
		_, err := io.WriteString(w, Markdown(rep, minTrades))
		return err
	case FormatHTML:
		return WriteHTML(w, rep, minTrades)
	case FormatConfig:
		if rep.Blueprint == nil {
			return fmt.Errorf("no blueprint: %s", Label(rep.Analysis, minTrades))
		}
		return WriteJSON(w, ToConfig(rep.Blueprint))
	case FormatTerminal, "":
		_, err := io.WriteString(w, Terminal(rep, minTrades))
		return err
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatValue renders a rule value for display.
func FormatValue(v store.RuleValue) string {
	if v.Number != nil {
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	}
	return v.Text
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func usd(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := strconv.FormatFloat(v, 'f', 0, 64)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}
