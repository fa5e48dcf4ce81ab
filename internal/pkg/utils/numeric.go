package utils

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

var numericReplacer = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".")

// ParseNumeric разбирает число из ячейки или поля формы: допускает пробелы-разделители
// разрядов и десятичную запятую. Пустое или нечисловое значение даёт nil.
func ParseNumeric(raw string) *float64 {
	s := numericReplacer.Replace(strings.TrimSpace(raw))
	if s == "" || s == "-" {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// NumericOrZero: нестрогий вариант для импорта: всё, что не число, считается нулём.
func NumericOrZero(raw string) float64 {
	if v := ParseNumeric(raw); v != nil {
		return *v
	}
	return 0
}

// NumericFromJSON принимает значение из тела запроса: число, строку или null.
func NumericFromJSON(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case json.Number:
		return ParseNumeric(val.String())
	case string:
		return ParseNumeric(val)
	case int:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	default:
		return nil
	}
}

// ChangePercent: изменение относительно прошлого периода с точностью до десятых.
// При нулевой базе процент не определён.
func ChangePercent(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	cur := decimal.NewFromFloat(current)
	prev := decimal.NewFromFloat(previous)
	f := cur.Sub(prev).Div(prev.Abs()).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
	return &f
}
