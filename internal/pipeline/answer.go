package pipeline

import (
	"strings"

	"github.com/askdata/askdata/internal/llm"
)

// AnswerKind discriminates the final answer variant
type AnswerKind string

const (
	AnswerText  AnswerKind = "text"
	AnswerTable AnswerKind = "table"
	AnswerChart AnswerKind = "chart"
)

// Answer is the structured result of one question. Text is always set;
// Columns and Rows are populated for table and chart answers; Chart only
// for chart answers.
type Answer struct {
	Kind    AnswerKind
	Text    string
	Columns []string
	Rows    [][]any
	Chart   *ChartSpec
}

// ChartSpec describes how to plot the result rows
type ChartSpec struct {
	Kind   string `json:"kind"` // bar, line, pie
	XField string `json:"x_field"`
	YField string `json:"y_field"`
	Title  string `json:"title,omitempty"`
}

var chartKinds = map[string]bool{
	"bar":  true,
	"line": true,
	"pie":  true,
}

// buildAnswer turns a successful execution into the right answer variant.
// A chart hint is honored only when its kind is supported and both axis
// fields exist in the result columns; otherwise the answer degrades to a
// plain table.
func buildAnswer(output *llm.Output, columns []string, rows [][]any) *Answer {
	answer := &Answer{
		Kind:    AnswerTable,
		Text:    output.Explanation,
		Columns: columns,
		Rows:    rows,
	}

	hint := output.Chart
	if hint == nil {
		return answer
	}

	if !chartKinds[hint.Kind] || !hasColumn(columns, hint.XField) || !hasColumn(columns, hint.YField) {
		return answer
	}

	answer.Kind = AnswerChart
	answer.Chart = &ChartSpec{
		Kind:   hint.Kind,
		XField: hint.XField,
		YField: hint.YField,
		Title:  hint.Title,
	}

	return answer
}

func hasColumn(columns []string, name string) bool {
	for _, col := range columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}

	return false
}
