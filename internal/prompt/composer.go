// Package prompt builds the model prompt from the table schema, retrieved
// documentation context, the user question, and any prior failed attempts.
// Composition is pure: the same inputs always produce the same payload.
package prompt

import (
	"fmt"
	"strings"

	"github.com/askdata/askdata/internal/docstore"
	"github.com/askdata/askdata/internal/schema"
)

// Correction records one prior failed attempt for the self-correction block.
type Correction struct {
	SQL     string
	Message string
}

const instructionHeader = `You are a data analyst. Write a single DuckDB SQL query that answers the question using only the table described below.

Rules:
- Use only SELECT (or WITH ... SELECT) statements. Never modify data.
- Use only columns that exist in the schema.
- Respond with a JSON object and nothing else, in this exact shape:
  {"sql": "<the query>", "explanation": "<one or two sentences>", "chart": {"kind": "bar|line|pie", "x_field": "<column>", "y_field": "<column>", "title": "<optional>"}}
- Omit the "chart" field unless the result is naturally a chart.`

// Compose assembles the prompt payload. Sections appear in a fixed order:
// instructions, schema, documentation context, correction block, question.
// When the payload would exceed budget (in characters), context chunks are
// dropped lowest-ranked first; the schema, corrections, and question are
// never dropped.
func Compose(
	question string,
	desc *schema.Descriptor,
	chunks []docstore.Chunk,
	corrections []Correction,
	budget int,
) string {
	kept := len(chunks)

	payload := assemble(question, desc, chunks[:kept], corrections)
	for budget > 0 && len(payload) > budget && kept > 0 {
		kept--
		payload = assemble(question, desc, chunks[:kept], corrections)
	}

	return payload
}

func assemble(
	question string,
	desc *schema.Descriptor,
	chunks []docstore.Chunk,
	corrections []Correction,
) string {
	var b strings.Builder

	b.WriteString(instructionHeader)
	b.WriteString("\n\n")

	b.WriteString("## Schema\n\n")
	b.WriteString(desc.Format())
	b.WriteString("\n")

	if len(chunks) > 0 {
		b.WriteString("\n## Documentation context\n\n")

		for _, chunk := range chunks {
			b.WriteString(chunk.Content)
			b.WriteString("\n---\n")
		}
	}

	if len(corrections) > 0 {
		last := corrections[len(corrections)-1]

		b.WriteString("\n## Previous attempt failed\n\n")
		if last.SQL == "" {
			fmt.Fprintf(&b, "The previous response could not be used:\n\n%s\n\n", last.Message)
			b.WriteString("Respond again with only the JSON object described above.\n")
		} else {
			fmt.Fprintf(&b, "This query:\n\n%s\n\nfailed with this error:\n\n%s\n\n", last.SQL, last.Message)
			b.WriteString("Repair the query above to fix the error. Do not start over from scratch unless the approach itself is wrong.\n")
		}
	}

	b.WriteString("\n## Question\n\n")
	b.WriteString(question)
	b.WriteString("\n")

	return b.String()
}
