// Package core opens registered pivot tables against the database.
//
// # Table Registry
//
// Tables are registered at init time using [Register]. A [TableDefinition]
// names the relation records live in, the loaders of its row and column
// dimensions and the specs of its input fields:
//
//	core.Register(core.TableDefinition{
//	    Info:     core.TableInfo{Key: "daily_sales", Label: "Daily Sales", Prefix: "sales"},
//	    Relation: postgres.Relation{Name: "daily_sales", Columns: []string{"employee_id", "sale_date", "amount"}},
//	    Rows:     []core.DimensionSpec{{Name: "employees", Load: loadEmployees}},
//	    Cols:     []core.DimensionSpec{{Name: "days", Load: tables.Days("sale_date")}},
//	    Cells:    []field.Spec{{Name: "amount", Type: field.Decimal, DecimalPlaces: 2}},
//	})
//
// # Opening and Saving
//
// [Service.Open] loads the dimensions concurrently, loads every record whose
// fields fall inside them and returns a [Table]. A Table renders itself and
// applies posted forms with [Table.Save]. Tables are per request: open a new
// one for every render or save.
//
// # Errors
//
// [MapError] turns any error returned here into a message with a support
// code for display.
package core
