package schema

import (
	"fmt"
	"strings"
)

// Descriptor describes one table of the loaded dataset. It is built once at
// startup by schema introspection and read-only afterward.
type Descriptor struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// Column describes a single column of the dataset table
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Nullable    bool   `json:"nullable"`
	Constraints string `json:"constraints,omitempty"`
	Description string `json:"description,omitempty"`
}

// HasColumn reports whether the descriptor contains a column with the given
// name, ignoring case.
func (d *Descriptor) HasColumn(name string) bool {
	for _, col := range d.Columns {
		if strings.EqualFold(col.Name, name) {
			return true
		}
	}

	return false
}

// ColumnNames returns the column names in declaration order
func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}

	return names
}

// Format renders the descriptor as prompt text. The output is deterministic:
// columns appear in declaration order with type, nullability, and any
// constraint or description annotations.
func (d *Descriptor) Format() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Table: %s\n", d.Table))
	sb.WriteString("Columns:\n")

	for _, col := range d.Columns {
		sb.WriteString(fmt.Sprintf("  - %s (%s", col.Name, col.Type))

		if !col.Nullable {
			sb.WriteString(", NOT NULL")
		}

		sb.WriteString(")")

		if col.Constraints != "" {
			sb.WriteString(" " + col.Constraints)
		}

		if col.Description != "" {
			sb.WriteString(" - " + col.Description)
		}

		sb.WriteString("\n")
	}

	return sb.String()
}
