package domain

import "time"

type Year = int
type Month = int

type Period struct {
	Year  Year  `db:"year" json:"year"`
	Month Month `db:"month" json:"month"`
}

type User struct {
	ID                    int64      `db:"id" json:"id"`
	Role                  Role       `db:"role" json:"role"`
	MunicipalityID        *int64     `db:"municipality_id" json:"municipality_id"`
	MunicipalityName      *string    `db:"municipality_name" json:"municipality_name,omitempty"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	IsActive              bool       `db:"is_active" json:"is_active"`
	PasswordResetRequired bool       `db:"password_reset_required" json:"password_reset_required"`
	LastLoginAt           *time.Time `db:"last_login_at" json:"last_login_at"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

type Municipality struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	HeadName     *string   `db:"head_name" json:"head_name"`
	HeadPosition *string   `db:"head_position" json:"head_position"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CatalogItem: запись справочника показателей или услуг.
// Для показателей заполнен FormCode, для услуг Category.
type CatalogItem struct {
	ID        int64   `db:"id" json:"id"`
	Code      string  `db:"code" json:"code"`
	Name      string  `db:"name" json:"name"`
	Unit      *string `db:"unit" json:"unit"`
	FormCode  *string `db:"form_code" json:"form_code,omitempty"`
	Category  *string `db:"category" json:"category,omitempty"`
	SortOrder *int    `db:"sort_order" json:"sort_order"`
}

type ValueRecord struct {
	MunicipalityID int64     `db:"municipality_id" json:"municipality_id"`
	ItemID         int64     `db:"item_id" json:"item_id"`
	PeriodYear     Year      `db:"period_year" json:"period_year"`
	PeriodMonth    Month     `db:"period_month" json:"period_month"`
	Value          float64   `db:"value_numeric" json:"value"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ValueEntry: одна позиция пакета на запись. Value == nil означает пустое или нечисловое значение.
type ValueEntry struct {
	ItemID int64
	Value  *float64
}

// RecentValue: строка ленты «последние изменения».
type RecentValue struct {
	MunicipalityID   int64     `db:"municipality_id" json:"municipality_id"`
	MunicipalityName string    `db:"municipality_name" json:"municipality_name"`
	ItemID           int64     `db:"item_id" json:"item_id"`
	ItemName         string    `db:"item_name" json:"item_name"`
	PeriodYear       Year      `db:"period_year" json:"period_year"`
	PeriodMonth      Month     `db:"period_month" json:"period_month"`
	Value            float64   `db:"value_numeric" json:"value"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ExportRow: строка выгрузки в xlsx.
type ExportRow struct {
	PeriodYear       Year      `db:"period_year"`
	PeriodMonth      Month     `db:"period_month"`
	MunicipalityName string    `db:"municipality_name"`
	ItemCode         string    `db:"item_code"`
	ItemName         string    `db:"item_name"`
	Unit             *string   `db:"unit"`
	Value            float64   `db:"value_numeric"`
	UpdatedAt        time.Time `db:"updated_at"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Detail  string `json:"detail,omitempty"`
}
