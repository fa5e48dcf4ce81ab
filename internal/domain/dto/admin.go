package dto

import "github.com/ougirez/muniportal/internal/domain"

type CreateUserRequest struct {
	Role                  domain.Role `json:"role" validate:"required,oneof=admin governor operator"`
	MunicipalityID        *int64      `json:"municipalityId"`
	Password              string      `json:"password" validate:"required"`
	IsActive              *bool       `json:"isActive"`
	PasswordResetRequired *bool       `json:"passwordResetRequired"`
}

type UpdateUserRequest struct {
	Role           *domain.Role `json:"role" validate:"omitempty,oneof=admin governor operator"`
	MunicipalityID *int64       `json:"municipalityId"`
	IsActive       *bool        `json:"isActive"`
}

type SetPasswordRequest struct {
	Password              string `json:"password" validate:"required"`
	PasswordResetRequired *bool  `json:"passwordResetRequired"`
}
