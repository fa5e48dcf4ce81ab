package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	SelectorAdmin    = "admin"
	SelectorGovernor = "governor"
)

type Options struct {
	BcryptCost     int
	MinPasswordLen int
}

type Service struct {
	store store.UserStore
	opts  Options

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(store store.UserStore, opts Options) *Service {
	return &Service{store: store, opts: opts}
}

// HashPassword хеширует пароль с заданной стоимостью bcrypt.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (svc *Service) Hash(password string) (string, error) {
	return HashPassword(password, svc.opts.BcryptCost)
}

// Selector: разобранный селектор входа: роль и, для оператора, муниципалитет.
type Selector struct {
	Role           domain.Role
	MunicipalityID *int64
}

func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return Selector{}, constants.BadRequest("selector is required")
	case SelectorAdmin:
		return Selector{Role: domain.RoleAdmin}, nil
	case SelectorGovernor:
		return Selector{Role: domain.RoleGovernor}, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return Selector{}, constants.BadRequest("invalid municipality selector")
	}
	return Selector{Role: domain.RoleOperator, MunicipalityID: &id}, nil
}

// Authenticate проверяет пару (селектор, пароль). Неизвестный селектор, выключенная
// учётка и неверный пароль неразличимы: одна и та же ошибка и одно сравнение bcrypt.
func (svc *Service) Authenticate(ctx context.Context, rawSelector, password string) (domain.Identity, error) {
	sel, err := ParseSelector(rawSelector)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, constants.BadRequest("password is required")
	}

	user, err := svc.store.FindLoginUser(ctx, sel.Role, sel.MunicipalityID)
	if err != nil && !errors.Is(err, constants.ErrDBNotFound) {
		logger.Errorf(ctx, "login lookup for %q failed: %v", rawSelector, err)
		return nil, err
	}

	if user == nil {
		svc.compareDummy(password)
		logger.Infof(ctx, "login failed: selector [%s], no such account", rawSelector)
		return nil, constants.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil || !user.IsActive {
		logger.Infof(ctx, "login failed: selector [%s], userID [%d]", rawSelector, user.ID)
		return nil, constants.ErrInvalidCredentials
	}

	identity, ok := domain.IdentityFromUser(user)
	if !ok {
		logger.Errorf(ctx, "user %d has inconsistent role binding", user.ID)
		return nil, constants.ErrInvalidCredentials
	}

	if err := svc.store.TouchLastLogin(ctx, user.ID); err != nil {
		logger.Warnf(ctx, "update last_login_at for user %d: %v", user.ID, err)
	}

	logger.Infof(ctx, "login: userID [%d], role [%s]", user.ID, user.Role)
	return identity, nil
}

func (svc *Service) compareDummy(password string) {
	svc.dummyOnce.Do(func() {
		svc.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), svc.opts.BcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(svc.dummyHash, []byte(password))
}

// ValidatePassword проверяет требования к новому паролю.
func (svc *Service) ValidatePassword(password string) error {
	if len([]rune(password)) < svc.opts.MinPasswordLen {
		return constants.BadRequest(fmt.Sprintf("password must be at least %d characters", svc.opts.MinPasswordLen))
	}
	return nil
}

// ChangePassword требует старый пароль и снимает флаг обязательной смены.
func (svc *Service) ChangePassword(ctx context.Context, identity domain.Identity, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return constants.BadRequest("old and new passwords are required")
	}
	if oldPassword == newPassword {
		return constants.BadRequest("new password must differ from the old one")
	}
	if err := svc.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := svc.store.GetUserByID(ctx, identity.UserID())
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return constants.ErrInvalidCredentials.WithMessage("old password is incorrect")
	}

	hash, err := svc.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := svc.store.UpdatePassword(ctx, user.ID, hash, false); err != nil {
		return err
	}

	logger.Infof(ctx, "password changed: userID [%d]", user.ID)
	return nil
}
