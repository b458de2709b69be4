package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money renders a decimal as a JSON number with two fraction digits.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
