package dto

// ValueInput: одна позиция формы. Value может прийти числом, строкой или null.
type ValueInput struct {
	IndicatorID int64 `json:"indicatorId"`
	Value       any   `json:"value"`
}

type SaveReportRequest struct {
	Kind           string       `json:"kind" validate:"omitempty,oneof=indicator service"`
	MunicipalityID *int64       `json:"municipalityId"`
	Year           int          `json:"year"`
	Month          int          `json:"month"`
	FormCode       *string      `json:"formCode"`
	Category       *string      `json:"category"`
	Values         []ValueInput `json:"values"`
}

type SaveReportResponse struct {
	Saved   int   `json:"saved"`
	Dropped []int `json:"dropped"`
}

type ExportRequest struct {
	Kind           string  `json:"kind" validate:"omitempty,oneof=indicator service"`
	Year           int     `json:"year" validate:"required"`
	Month          *int    `json:"month"`
	MunicipalityID *int64  `json:"municipalityId"`
	Category       *string `json:"category"`
}
