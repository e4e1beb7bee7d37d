package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleDescriptor() *Descriptor {
	return &Descriptor{
		Table: "sample_sales_data",
		Columns: []Column{
			{Name: "Order_ID", Type: "VARCHAR", Nullable: false},
			{Name: "Unit_Price", Type: "DOUBLE", Nullable: true, Description: "Price per unit"},
			{
				Name:        "Discount_Percentage",
				Type:        "INTEGER",
				Nullable:    true,
				Constraints: "CHECK (Discount_Percentage BETWEEN 0 AND 100)",
			},
		},
	}
}

func TestHasColumn(t *testing.T) {
	desc := sampleDescriptor()

	assert.True(t, desc.HasColumn("Order_ID"))
	assert.True(t, desc.HasColumn("order_id"))
	assert.False(t, desc.HasColumn("Customer_Name"))
}

func TestColumnNames(t *testing.T) {
	desc := sampleDescriptor()

	assert.Equal(t,
		[]string{"Order_ID", "Unit_Price", "Discount_Percentage"},
		desc.ColumnNames())
}

func TestFormat(t *testing.T) {
	desc := sampleDescriptor()
	text := desc.Format()

	assert.Contains(t, text, "Table: sample_sales_data")
	assert.Contains(t, text, "Order_ID (VARCHAR, NOT NULL)")
	assert.Contains(t, text, "Unit_Price (DOUBLE) - Price per unit")
	assert.Contains(t, text, "CHECK (Discount_Percentage BETWEEN 0 AND 100)")

	// Formatting is deterministic.
	assert.Equal(t, text, desc.Format())
}
