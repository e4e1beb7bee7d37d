// Package render turns a structured answer into terminal output.
package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/askdata/askdata/internal/pipeline"
)

// Renderer handles answer output formatting
type Renderer struct {
	maxTextWidth int
}

// NewRenderer creates a new renderer instance
func NewRenderer() *Renderer {
	return &Renderer{maxTextWidth: 100}
}

// Render formats an answer for the terminal. Text answers are wrapped
// prose; table answers are the explanation followed by an aligned table;
// chart answers add the chart directive as JSON above the backing table.
func (r *Renderer) Render(answer *pipeline.Answer) string {
	switch answer.Kind {
	case pipeline.AnswerText:
		return r.wrapText(answer.Text)
	case pipeline.AnswerTable:
		return r.renderTable(answer)
	case pipeline.AnswerChart:
		return r.renderChart(answer)
	default:
		return r.wrapText(answer.Text)
	}
}

func (r *Renderer) renderTable(answer *pipeline.Answer) string {
	var parts []string

	if answer.Text != "" {
		parts = append(parts, r.wrapText(answer.Text))
	}

	parts = append(parts, r.FormatTable(answer.Columns, answer.Rows))

	return strings.Join(parts, "\n\n")
}

func (r *Renderer) renderChart(answer *pipeline.Answer) string {
	var parts []string

	if answer.Text != "" {
		parts = append(parts, r.wrapText(answer.Text))
	}

	spec, err := json.MarshalIndent(answer.Chart, "", "  ")
	if err == nil {
		parts = append(parts, "Chart: "+string(spec))
	}

	parts = append(parts, r.FormatTable(answer.Columns, answer.Rows))

	return strings.Join(parts, "\n\n")
}

// FormatTable renders rows as an aligned column table with a header rule
func (r *Renderer) FormatTable(columns []string, rows [][]any) string {
	if len(columns) == 0 {
		return "(no results)"
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	cells := make([][]string, len(rows))

	for i, row := range rows {
		cells[i] = make([]string, len(columns))

		for j := range columns {
			var value string
			if j < len(row) {
				value = FormatValue(row[j])
			}

			cells[i][j] = value

			if len(value) > widths[j] {
				widths[j] = len(value)
			}
		}
	}

	var b strings.Builder

	writeRow := func(values []string) {
		for j, value := range values {
			if j > 0 {
				b.WriteString("  ")
			}

			b.WriteString(value)
			b.WriteString(strings.Repeat(" ", widths[j]-len(value)))
		}

		b.WriteString("\n")
	}

	writeRow(columns)

	rules := make([]string, len(columns))
	for j := range columns {
		rules[j] = strings.Repeat("-", widths[j])
	}

	writeRow(rules)

	for _, row := range cells {
		writeRow(row)
	}

	if len(rows) == 1 {
		b.WriteString("(1 row)")
	} else {
		fmt.Fprintf(&b, "(%d rows)", len(rows))
	}

	return b.String()
}

// FormatValue renders one cell. Floats drop trailing zeros, times use
// RFC 3339 date form, nil shows as NULL.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return v.Format("2006-01-02")
		}

		return v.Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// wrapText breaks prose onto lines no wider than the renderer's limit
func (r *Renderer) wrapText(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var (
		lines   []string
		current strings.Builder
	)

	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > r.maxTextWidth {
			lines = append(lines, current.String())
			current.Reset()
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}

		current.WriteString(word)
	}

	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return strings.Join(lines, "\n")
}
