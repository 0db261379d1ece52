package field

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DateLayout is the layout dates are shown in inside cells.
const DateLayout = "2006-01-02"

// Format renders a stored field value for display in a cell. Values read
// back from Postgres arrive as pgtype values and are unwrapped first.
// A nil or invalid value renders as "".
func Format(v any, spec Spec) string {
	switch x := v.(type) {
	case nil:
		return ""
	case pgtype.Numeric:
		if !x.Valid {
			return ""
		}
		d, ok := numericToDecimal(x)
		if !ok {
			return ""
		}
		return formatDecimal(d, spec)
	case decimal.Decimal:
		return formatDecimal(x, spec)
	case *decimal.Decimal:
		if x == nil {
			return ""
		}
		return formatDecimal(*x, spec)
	case pgtype.Date:
		if !x.Valid {
			return ""
		}
		return x.Time.Format(DateLayout)
	case pgtype.Text:
		if !x.Valid {
			return ""
		}
		return x.String
	case pgtype.Int8:
		if !x.Valid {
			return ""
		}
		return strconv.FormatInt(x.Int64, 10)
	case pgtype.Bool:
		if !x.Valid {
			return ""
		}
		return formatBool(x.Bool)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(DateLayout)
	case bool:
		return formatBool(x)
	case float64:
		if spec.Type == Decimal {
			return formatDecimal(decimal.NewFromFloat(x), spec)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Formatter binds Format to spec, for use as an item renderer.
func (s Spec) Formatter() func(any) string {
	return func(v any) string { return Format(v, s) }
}

func formatDecimal(d decimal.Decimal, spec Spec) string {
	if spec.DecimalPlaces > 0 {
		return d.StringFixed(spec.DecimalPlaces)
	}
	return d.String()
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, bool) {
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), true
}
