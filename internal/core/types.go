package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/dimtable/internal/field"
	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/postgres"
	"github.com/JonMunkholm/dimtable/internal/store"
)

// Source is what a dimension loader may read from.
type Source struct {
	DB    postgres.DBTX
	Start time.Time // First day of date-keyed dimensions
	Days  int       // Number of days in date-keyed dimensions
}

// LoadFunc returns the items of one dimension.
type LoadFunc func(ctx context.Context, src Source) ([]grid.Item, error)

// DimensionSpec declares one row or column dimension of a table.
type DimensionSpec struct {
	Name string   `validate:"required"` // Used in logs and errors
	Load LoadFunc `validate:"required"`
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Key         string `validate:"required"` // Unique identifier: "daily_sales"
	Label       string `validate:"required"` // Display name: "Daily Sales"
	Group       string // Index heading
	Prefix      string `validate:"required,alphanum"` // Form key namespace
	CornerTitle string
	ReadOnly    bool
}

// TableDefinition contains everything needed to open a table.
type TableDefinition struct {
	Info     TableInfo
	Relation postgres.Relation
	Rows     []DimensionSpec `validate:"required,min=1,dive"`
	Cols     []DimensionSpec `validate:"required,min=1,dive"`

	// Cells holds one spec per input field. With more than one, every
	// field gets its own body row per record.
	Cells []field.Spec `validate:"required,min=1,dive"`

	Fixed []store.FixedField
}

// Fields returns the names of the input fields.
func (d TableDefinition) Fields() []string {
	out := make([]string, len(d.Cells))
	for i, c := range d.Cells {
		out[i] = c.Name
	}
	return out
}
