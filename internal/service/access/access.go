// Package access решает, может ли личность сессии выполнить действие над муниципалитетом.
// Решение чистое: зависит только от identity и запроса.
package access

import (
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
)

type Action int

const (
	// AggregateRead: сводные данные и дашборды.
	AggregateRead Action = iota
	// Read: данные одного муниципалитета.
	Read
	// Write: запись значений муниципалитета.
	Write
	// Admin: управление пользователями, справочниками и импорт файлов.
	Admin
)

func (a Action) String() string {
	switch a {
	case AggregateRead:
		return "aggregate_read"
	case Read:
		return "read"
	case Write:
		return "write"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}

type Request struct {
	Action         Action
	MunicipalityID *int64
}

// Authorize возвращает nil или ErrForbidden. Причина отказа наружу не выдаётся.
func Authorize(identity domain.Identity, req Request) error {
	switch id := identity.(type) {
	case domain.Admin:
		return nil
	case domain.Governor:
		// губернатору только свод по всем муниципалитетам
		if req.Action == AggregateRead && req.MunicipalityID == nil {
			return nil
		}
	case domain.Operator:
		if req.Action != Admin && req.MunicipalityID != nil && *req.MunicipalityID == id.Municipality {
			return nil
		}
	}
	return constants.ErrForbidden
}

// RequireScope проверяется до Authorize в операциях, которым нужен муниципалитет.
func RequireScope(municipalityID *int64) error {
	if municipalityID == nil {
		return constants.ErrMissingScope
	}
	return nil
}

// MunicipalityFilter: ограничение списков для scope=mine: оператору только свой муниципалитет.
func MunicipalityFilter(identity domain.Identity) *int64 {
	if id, ok := identity.MunicipalityID(); ok {
		return &id
	}
	return nil
}

// ScopeFor подставляет муниципалитет оператора, если клиент его не передал,
// для остальных ролей возвращает запрошенное как есть.
func ScopeFor(identity domain.Identity, requested *int64) *int64 {
	if requested != nil {
		return requested
	}
	return MunicipalityFilter(identity)
}
