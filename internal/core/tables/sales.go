package tables

import (
	"context"
	"time"

	"github.com/JonMunkholm/dimtable/internal/core"
	"github.com/JonMunkholm/dimtable/internal/field"
	"github.com/JonMunkholm/dimtable/internal/grid"
	"github.com/JonMunkholm/dimtable/internal/postgres"
)

func init() {
	core.Register(DailySales())
}

// DailySales is the amount sold per employee and product on each day of the
// date window.
func DailySales() core.TableDefinition {
	return core.TableDefinition{
		Info: core.TableInfo{
			Key:         "daily_sales",
			Label:       "Daily Sales",
			Group:       "Sales",
			Prefix:      "sales",
			CornerTitle: "Employee / Product",
		},
		Relation: postgres.Relation{
			Name:    "daily_sales",
			Columns: []string{"employee_id", "product_id", "sale_date", "amount"},
		},
		Rows: []core.DimensionSpec{
			{Name: "employees", Load: lookup(postgres.ItemQuery{
				Relation: "employees", ValueColumn: "id", LabelColumn: "name", Field: "employee_id",
			})},
			{Name: "products", Load: lookup(postgres.ItemQuery{
				Relation: "products", ValueColumn: "id", LabelColumn: "name", Field: "product_id",
			})},
		},
		Cols: []core.DimensionSpec{
			{Name: "days", Load: Days("sale_date")},
		},
		Cells: []field.Spec{
			{Name: "amount", Label: "Amount", Type: field.Decimal, DecimalPlaces: 2},
		},
	}
}

func lookup(q postgres.ItemQuery) core.LoadFunc {
	return func(ctx context.Context, src core.Source) ([]grid.Item, error) {
		return postgres.LoadItems(ctx, src.DB, q)
	}
}

// Days returns one item per day of the source's date window, bound to the
// date field f. Weekend days carry the "weekend" class.
func Days(f string) core.LoadFunc {
	return func(_ context.Context, src core.Source) ([]grid.Item, error) {
		items := make([]grid.Item, src.Days)
		for i := range items {
			day := src.Start.AddDate(0, 0, i)
			var tags []string
			if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
				tags = append(tags, "weekend")
			}
			items[i] = grid.NewValueItem(f, day, dayLabel, tags...)
		}
		return items, nil
	}
}

func dayLabel(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("Mon 01/02")
	}
	return ""
}
