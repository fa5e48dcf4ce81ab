package user

import (
	"context"
	"errors"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/domain/dto"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/store"
)

type Store interface {
	store.UserStore
	GetMunicipality(ctx context.Context, id int64) (*domain.Municipality, error)
	DeleteMunicipality(ctx context.Context, id int64) error
}

// Passwords: проверка и хеширование паролей, реализуется auth.Service.
type Passwords interface {
	ValidatePassword(password string) error
	Hash(password string) (string, error)
}

type Service struct {
	store     Store
	passwords Passwords
}

func NewUserService(store Store, passwords Passwords) *Service {
	return &Service{store: store, passwords: passwords}
}

var (
	ErrOperatorTaken     = constants.ErrConflict.WithMessage("municipality already has an operator")
	ErrMunicipalityInUse = constants.ErrConflict.WithMessage("municipality is referenced by reports or users")
	ErrSelfModification  = constants.BadRequest("administrator cannot delete, demote or deactivate own account")
)

func (svc *Service) List(ctx context.Context) ([]*domain.User, error) {
	return svc.store.ListUsers(ctx)
}

func (svc *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	return svc.store.GetUserByID(ctx, id)
}

// checkBinding: оператор привязан ровно к одному существующему муниципалитету,
// остальные роли не привязаны ни к одному.
func (svc *Service) checkBinding(ctx context.Context, role domain.Role, municipalityID *int64) error {
	if !role.Valid() {
		return constants.BadRequest("unknown role")
	}
	if role != domain.RoleOperator {
		if municipalityID != nil {
			return constants.BadRequest("only operators are bound to a municipality")
		}
		return nil
	}
	if municipalityID == nil {
		return constants.BadRequest("operator requires municipalityId")
	}
	if _, err := svc.store.GetMunicipality(ctx, *municipalityID); err != nil {
		if errors.Is(err, constants.ErrDBNotFound) {
			return constants.ErrNotFound.WithMessage("municipality not found")
		}
		return err
	}
	return nil
}

func mapConflict(err error) error {
	if errors.Is(err, constants.ErrDBConflict) {
		return ErrOperatorTaken
	}
	return err
}

func (svc *Service) Create(ctx context.Context, actor domain.Identity, req *dto.CreateUserRequest) (*domain.User, error) {
	if err := svc.checkBinding(ctx, req.Role, req.MunicipalityID); err != nil {
		return nil, err
	}
	if err := svc.passwords.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	hash, err := svc.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Role:                  req.Role,
		MunicipalityID:        req.MunicipalityID,
		PasswordHash:          hash,
		IsActive:              true,
		PasswordResetRequired: true,
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.PasswordResetRequired != nil {
		u.PasswordResetRequired = *req.PasswordResetRequired
	}

	created, err := svc.store.CreateUser(ctx, u)
	if err != nil {
		return nil, mapConflict(err)
	}

	logger.Info(ctx, "user created", "actor", actor.UserID(), "user", created.ID, "role", created.Role)
	return created, nil
}

func (svc *Service) Update(ctx context.Context, actor domain.Identity, id int64, req *dto.UpdateUserRequest) (*domain.User, error) {
	current, err := svc.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if id == actor.UserID() {
		if (req.Role != nil && *req.Role != current.Role) || (req.IsActive != nil && !*req.IsActive) {
			return nil, ErrSelfModification
		}
	}

	role := current.Role
	if req.Role != nil {
		role = *req.Role
	}
	municipalityID := current.MunicipalityID
	if req.MunicipalityID != nil {
		municipalityID = req.MunicipalityID
	}
	if role != domain.RoleOperator {
		municipalityID = nil
	}
	if err := svc.checkBinding(ctx, role, municipalityID); err != nil {
		return nil, err
	}

	patch := store.UserPatch{Role: req.Role, IsActive: req.IsActive}
	if municipalityID == nil {
		patch.ClearScope = current.MunicipalityID != nil
	} else if current.MunicipalityID == nil || *current.MunicipalityID != *municipalityID {
		patch.MunicipalityID = municipalityID
	}
	if patch.Empty() {
		return current, nil
	}

	if err := svc.store.UpdateUser(ctx, id, patch); err != nil {
		return nil, mapConflict(err)
	}

	logger.Info(ctx, "user updated", "actor", actor.UserID(), "user", id)
	return svc.store.GetUserByID(ctx, id)
}

// SetPassword по умолчанию требует смены пароля при следующем входе.
func (svc *Service) SetPassword(ctx context.Context, actor domain.Identity, id int64, req *dto.SetPasswordRequest) error {
	if err := svc.passwords.ValidatePassword(req.Password); err != nil {
		return err
	}
	hash, err := svc.passwords.Hash(req.Password)
	if err != nil {
		return err
	}

	resetRequired := id != actor.UserID()
	if req.PasswordResetRequired != nil {
		resetRequired = *req.PasswordResetRequired
	}
	if err := svc.store.UpdatePassword(ctx, id, hash, resetRequired); err != nil {
		return err
	}

	logger.Info(ctx, "user password set", "actor", actor.UserID(), "user", id)
	return nil
}

func (svc *Service) Delete(ctx context.Context, actor domain.Identity, id int64) error {
	if id == actor.UserID() {
		return ErrSelfModification
	}
	if err := svc.store.DeleteUser(ctx, id); err != nil {
		return err
	}

	logger.Info(ctx, "user deleted", "actor", actor.UserID(), "user", id)
	return nil
}

// DeleteMunicipality отклоняется, пока на муниципалитет ссылаются значения или пользователи.
func (svc *Service) DeleteMunicipality(ctx context.Context, actor domain.Identity, id int64) error {
	if err := svc.store.DeleteMunicipality(ctx, id); err != nil {
		if errors.Is(err, constants.ErrDBReferenced) {
			return ErrMunicipalityInUse
		}
		return err
	}

	logger.Info(ctx, "municipality deleted", "actor", actor.UserID(), "municipality", id)
	return nil
}
