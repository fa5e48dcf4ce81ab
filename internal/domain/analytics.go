package domain

type MonthTotal struct {
	Month   Month   `db:"month" json:"month"`
	Total   float64 `db:"total" json:"total"`
	Records int64   `db:"records" json:"records"`
}

type ItemTotal struct {
	ID       int64   `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Category *string `db:"category" json:"category"`
	Total    float64 `db:"total" json:"total"`
}

type CategoryTotal struct {
	Category string  `db:"category" json:"category"`
	Total    float64 `db:"total" json:"total"`
}

type MunicipalityTotal struct {
	ID    int64   `db:"id" json:"id"`
	Name  string  `db:"name" json:"name"`
	Total float64 `db:"total" json:"total"`
}
