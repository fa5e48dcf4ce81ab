package domain

import "fmt"

// ValueKind различает две независимые пары «справочник и значения».
type ValueKind string

const (
	KindIndicator ValueKind = "indicator"
	KindService   ValueKind = "service"
)

func ParseValueKind(s string) (ValueKind, error) {
	switch ValueKind(s) {
	case "", KindIndicator:
		return KindIndicator, nil
	case KindService:
		return KindService, nil
	default:
		return "", fmt.Errorf("unknown value kind %q", s)
	}
}

// Tables описывает физическое размещение вида значений.
// Filter: колонка справочника, по которой отбирается форма или категория.
type Tables struct {
	Catalog string
	Values  string
	ItemFK  string
	Filter  string
}

func (k ValueKind) Tables() Tables {
	if k == KindService {
		return Tables{Catalog: "services_catalog", Values: "service_values", ItemFK: "service_id", Filter: "category"}
	}
	return Tables{Catalog: "indicators_catalog", Values: "indicator_values", ItemFK: "indicator_id", Filter: "form_code"}
}

const (
	FormGMU   = "form_1_gmu"
	FormGIBDD = "gibdd"
)
