package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdata/askdata/internal/pipeline"
)

func TestRenderTextAnswer(t *testing.T) {
	r := NewRenderer()

	out := r.Render(&pipeline.Answer{
		Kind: pipeline.AnswerText,
		Text: "Could not produce a working query after 3 attempt(s). Last error: syntax error",
	})

	assert.Contains(t, out, "syntax error")
	assert.NotContains(t, out, "(0 rows)")
}

func TestRenderTextWrapping(t *testing.T) {
	r := NewRenderer()

	out := r.Render(&pipeline.Answer{
		Kind: pipeline.AnswerText,
		Text: strings.Repeat("word ", 60),
	})

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 100)
	}
}

func TestRenderTableAnswer(t *testing.T) {
	r := NewRenderer()

	out := r.Render(&pipeline.Answer{
		Kind:    pipeline.AnswerTable,
		Text:    "Pending orders.",
		Columns: []string{"Order_ID", "Order_Status"},
		Rows: [][]any{
			{int64(1), "Pending"},
			{int64(3), "Pending"},
		},
	})

	assert.Contains(t, out, "Pending orders.")
	assert.Contains(t, out, "Order_ID")
	assert.Contains(t, out, "(2 rows)")

	// Header cells align with their column rules.
	lines := strings.Split(out, "\n")
	var header, rule string

	for i, line := range lines {
		if strings.HasPrefix(line, "Order_ID") {
			header = line
			rule = lines[i+1]

			break
		}
	}

	require.NotEmpty(t, header)
	assert.Equal(t, strings.Index(header, "Order_Status"), strings.Index(rule, "------------"))
}

func TestRenderChartAnswer(t *testing.T) {
	r := NewRenderer()

	out := r.Render(&pipeline.Answer{
		Kind:    pipeline.AnswerChart,
		Text:    "Sales per region.",
		Columns: []string{"region", "total"},
		Rows:    [][]any{{"West", 10.5}, {"East", 20.0}},
		Chart: &pipeline.ChartSpec{
			Kind:   "bar",
			XField: "region",
			YField: "total",
		},
	})

	assert.Contains(t, out, `"kind": "bar"`)
	assert.Contains(t, out, `"x_field": "region"`)
	assert.Contains(t, out, "West")
	assert.Contains(t, out, "(2 rows)")
}

func TestFormatTableEmpty(t *testing.T) {
	r := NewRenderer()

	out := r.FormatTable([]string{"a"}, nil)
	assert.Contains(t, out, "(0 rows)")

	out = r.FormatTable(nil, nil)
	assert.Equal(t, "(no results)", out)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, "NULL"},
		{"string", "hello", "hello"},
		{"bytes", []byte("raw"), "raw"},
		{"int64", int64(42), "42"},
		{"float no trailing zeros", 10.50, "10.5"},
		{"float integral", 20.0, "20"},
		{"bool", true, "true"},
		{"date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{
			"timestamp",
			time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
			"2024-03-01T12:30:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(tt.value))
		})
	}
}
