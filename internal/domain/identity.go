package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleGovernor Role = "governor"
	RoleOperator Role = "operator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleGovernor, RoleOperator:
		return true
	default:
		return false
	}
}

// Identity: аутентифицированный субъект сессии. Реализации закрыты: Admin, Governor, Operator.
type Identity interface {
	Role() Role
	UserID() int64
	// MunicipalityID возвращает привязку оператора; для остальных ролей ok == false.
	MunicipalityID() (id int64, ok bool)
	PasswordResetRequired() bool

	isIdentity()
}

type Admin struct {
	ID            int64
	ResetRequired bool
}

type Governor struct {
	ID            int64
	ResetRequired bool
}

type Operator struct {
	ID               int64
	Municipality     int64
	MunicipalityName string
	ResetRequired    bool
}

func (a Admin) Role() Role { return RoleAdmin }

func (a Admin) UserID() int64 { return a.ID }

func (a Admin) MunicipalityID() (int64, bool) { return 0, false }

func (a Admin) PasswordResetRequired() bool { return a.ResetRequired }

func (Admin) isIdentity() {}

func (g Governor) Role() Role { return RoleGovernor }

func (g Governor) UserID() int64 { return g.ID }

func (g Governor) MunicipalityID() (int64, bool) { return 0, false }

func (g Governor) PasswordResetRequired() bool { return g.ResetRequired }

func (Governor) isIdentity() {}

func (o Operator) Role() Role { return RoleOperator }

func (o Operator) UserID() int64 { return o.ID }

func (o Operator) MunicipalityID() (int64, bool) { return o.Municipality, true }

func (o Operator) PasswordResetRequired() bool { return o.ResetRequired }

func (Operator) isIdentity() {}

// IdentityFromUser строит Identity из строки users. Оператор без муниципалитета невалиден.
func IdentityFromUser(u *User) (Identity, bool) {
	switch u.Role {
	case RoleAdmin:
		return Admin{ID: u.ID, ResetRequired: u.PasswordResetRequired}, true
	case RoleGovernor:
		return Governor{ID: u.ID, ResetRequired: u.PasswordResetRequired}, true
	case RoleOperator:
		if u.MunicipalityID == nil {
			return nil, false
		}
		op := Operator{
			ID:            u.ID,
			Municipality:  *u.MunicipalityID,
			ResetRequired: u.PasswordResetRequired,
		}
		if u.MunicipalityName != nil {
			op.MunicipalityName = *u.MunicipalityName
		}
		return op, true
	default:
		return nil, false
	}
}

// IdentityView отдаётся клиенту в /auth/me и /auth/login.
type IdentityView struct {
	ID                    int64   `json:"id"`
	Role                  Role    `json:"role"`
	MunicipalityID        *int64  `json:"municipality_id"`
	MunicipalityName      *string `json:"municipality_name"`
	PasswordResetRequired bool    `json:"password_reset_required"`
}

func ViewOf(identity Identity) IdentityView {
	view := IdentityView{
		ID:                    identity.UserID(),
		Role:                  identity.Role(),
		PasswordResetRequired: identity.PasswordResetRequired(),
	}
	if op, ok := identity.(Operator); ok {
		id, name := op.Municipality, op.MunicipalityName
		view.MunicipalityID = &id
		view.MunicipalityName = &name
	}
	return view
}
