// Package storetest: хранилище в памяти для тестов сервисов и хендлеров.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/store"
)

type valueKey struct {
	municipality int64
	item         int64
	year         domain.Year
	month        domain.Month
}

// Memory реализует store.Store. Errors[имя метода] подменяет результат вызова ошибкой,
// при этом состояние не меняется.
type Memory struct {
	mu sync.Mutex

	users          map[int64]*domain.User
	municipalities map[int64]*domain.Municipality
	catalog        map[domain.ValueKind][]*domain.CatalogItem
	values         map[domain.ValueKind]map[valueKey]*domain.ValueRecord

	Tables map[string]bool
	Errors map[string]error
	Calls  map[string]int

	seq  int64
	base time.Time
}

var _ store.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:          make(map[int64]*domain.User),
		municipalities: make(map[int64]*domain.Municipality),
		catalog:        make(map[domain.ValueKind][]*domain.CatalogItem),
		values: map[domain.ValueKind]map[valueKey]*domain.ValueRecord{
			domain.KindIndicator: {},
			domain.KindService:   {},
		},
		Tables: map[string]bool{
			"municipalities":     true,
			"indicators_catalog": true,
			"indicator_values":   true,
			"services_catalog":   true,
			"service_values":     true,
		},
		Errors: make(map[string]error),
		Calls:  make(map[string]int),
		base:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *Memory) call(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
	return m.Errors[name]
}

func (m *Memory) now() time.Time {
	m.seq++
	return m.base.Add(time.Duration(m.seq) * time.Second)
}

func (m *Memory) AddMunicipality(id int64, name string) *domain.Municipality {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := &domain.Municipality{ID: id, Name: name, IsActive: true, CreatedAt: m.base}
	m.municipalities[id] = item
	return item
}

func (m *Memory) AddCatalogItem(kind domain.ValueKind, item domain.CatalogItem) *domain.CatalogItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog[kind] = append(m.catalog[kind], &item)
	return &item
}

func (m *Memory) AddUser(u domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.seq++
		u.ID = 1000 + m.seq
	}
	u.CreatedAt = m.base
	u.UpdatedAt = m.base
	m.users[u.ID] = &u
	return &u
}

// Value возвращает сохранённое значение, записей по ключу всегда не больше одной.
func (m *Memory) Value(kind domain.ValueKind, municipalityID, itemID int64, period domain.Period) (*domain.ValueRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.values[kind][valueKey{municipalityID, itemID, period.Year, period.Month}]
	return rec, ok
}

func (m *Memory) ValueCount(kind domain.ValueKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values[kind])
}

func (m *Memory) ResolveTables(ctx context.Context) error {
	return m.call("ResolveTables")
}

func (m *Memory) HasTable(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Tables[name]
}

func (m *Memory) Ping(ctx context.Context) error {
	return m.call("Ping")
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func (m *Memory) withName(u *domain.User) *domain.User {
	c := clone(u)
	c.MunicipalityName = nil
	if u.MunicipalityID != nil {
		if mun, ok := m.municipalities[*u.MunicipalityID]; ok {
			name := mun.Name
			c.MunicipalityName = &name
		}
	}
	return c
}

func (m *Memory) FindLoginUser(ctx context.Context, role domain.Role, municipalityID *int64) (*domain.User, error) {
	if err := m.call("FindLoginUser"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var found *domain.User
	for _, u := range m.users {
		if u.Role != role {
			continue
		}
		if role == domain.RoleOperator {
			if municipalityID == nil || u.MunicipalityID == nil || *u.MunicipalityID != *municipalityID {
				continue
			}
		} else if u.MunicipalityID != nil {
			continue
		}
		if found == nil || u.ID < found.ID {
			found = u
		}
	}
	if found == nil {
		return nil, constants.ErrDBNotFound
	}
	return m.withName(found), nil
}

func (m *Memory) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := m.call("GetUserByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, constants.ErrDBNotFound
	}
	return m.withName(u), nil
}

func (m *Memory) ListUsers(ctx context.Context) ([]*domain.User, error) {
	if err := m.call("ListUsers"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, m.withName(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) operatorTaken(municipalityID int64, except int64) bool {
	for _, u := range m.users {
		if u.ID != except && u.MunicipalityID != nil && *u.MunicipalityID == municipalityID {
			return true
		}
	}
	return false
}

func (m *Memory) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := m.call("CreateUser"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.MunicipalityID != nil {
		if _, ok := m.municipalities[*user.MunicipalityID]; !ok {
			return nil, constants.ErrDBReferenced
		}
		if m.operatorTaken(*user.MunicipalityID, 0) {
			return nil, constants.ErrDBConflict
		}
	}
	u := clone(user)
	m.seq++
	u.ID = 1000 + m.seq
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return m.withName(u), nil
}

func (m *Memory) UpdateUser(ctx context.Context, id int64, patch store.UserPatch) error {
	if err := m.call("UpdateUser"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return constants.ErrDBNotFound
	}
	if patch.MunicipalityID != nil && m.operatorTaken(*patch.MunicipalityID, id) {
		return constants.ErrDBConflict
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.ClearScope {
		u.MunicipalityID = nil
	} else if patch.MunicipalityID != nil {
		v := *patch.MunicipalityID
		u.MunicipalityID = &v
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	u.UpdatedAt = m.now()
	return nil
}

func (m *Memory) UpdatePassword(ctx context.Context, id int64, hash string, resetRequired bool) error {
	if err := m.call("UpdatePassword"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return constants.ErrDBNotFound
	}
	u.PasswordHash = hash
	u.PasswordResetRequired = resetRequired
	return nil
}

func (m *Memory) TouchLastLogin(ctx context.Context, id int64) error {
	if err := m.call("TouchLastLogin"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return constants.ErrDBNotFound
	}
	at := m.now()
	u.LastLoginAt = &at
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, id int64) error {
	if err := m.call("DeleteUser"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return constants.ErrDBNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) ListMunicipalities(ctx context.Context, onlyID *int64) ([]*domain.Municipality, error) {
	if err := m.call("ListMunicipalities"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*domain.Municipality, 0, len(m.municipalities))
	for _, mun := range m.municipalities {
		if !mun.IsActive || (onlyID != nil && mun.ID != *onlyID) {
			continue
		}
		items = append(items, clone(mun))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (m *Memory) GetMunicipality(ctx context.Context, id int64) (*domain.Municipality, error) {
	if err := m.call("GetMunicipality"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mun, ok := m.municipalities[id]
	if !ok {
		return nil, constants.ErrDBNotFound
	}
	return clone(mun), nil
}

func (m *Memory) UpsertMunicipalities(ctx context.Context, items []*domain.Municipality) (int, error) {
	if err := m.call("UpsertMunicipalities"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byName := make(map[string]*domain.Municipality, len(m.municipalities))
	for _, mun := range m.municipalities {
		byName[mun.Name] = mun
	}
	for _, item := range items {
		if existing, ok := byName[item.Name]; ok {
			if item.HeadName != nil {
				existing.HeadName = item.HeadName
			}
			if item.HeadPosition != nil {
				existing.HeadPosition = item.HeadPosition
			}
			existing.IsActive = true
			continue
		}
		c := clone(item)
		m.seq++
		c.ID = m.seq
		c.IsActive = true
		m.municipalities[c.ID] = c
		byName[c.Name] = c
	}
	return len(items), nil
}

func (m *Memory) DeleteMunicipality(ctx context.Context, id int64) error {
	if err := m.call("DeleteMunicipality"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.municipalities[id]; !ok {
		return constants.ErrDBNotFound
	}
	for _, kind := range []domain.ValueKind{domain.KindIndicator, domain.KindService} {
		for k := range m.values[kind] {
			if k.municipality == id {
				return constants.ErrDBReferenced
			}
		}
	}
	for _, u := range m.users {
		if u.MunicipalityID != nil && *u.MunicipalityID == id {
			return constants.ErrDBReferenced
		}
	}
	delete(m.municipalities, id)
	return nil
}

func filterOf(kind domain.ValueKind, item *domain.CatalogItem) *string {
	if kind == domain.KindService {
		return item.Category
	}
	return item.FormCode
}

func (m *Memory) ListCatalog(ctx context.Context, kind domain.ValueKind, filter *string) ([]*domain.CatalogItem, error) {
	if err := m.call("ListCatalog"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*domain.CatalogItem
	for _, item := range m.catalog[kind] {
		if filter != nil {
			f := filterOf(kind, item)
			if f == nil || *f != *filter {
				continue
			}
		}
		items = append(items, clone(item))
	}
	return items, nil
}

func (m *Memory) UpsertValues(ctx context.Context, b store.ValueBatch) (int, error) {
	if err := m.call("UpsertValues"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.municipalities[b.MunicipalityID]; !ok {
		return 0, constants.ErrDBReferenced
	}
	for _, e := range b.Entries {
		key := valueKey{b.MunicipalityID, e.ItemID, b.Period.Year, b.Period.Month}
		m.values[b.Kind][key] = &domain.ValueRecord{
			MunicipalityID: b.MunicipalityID,
			ItemID:         e.ItemID,
			PeriodYear:     b.Period.Year,
			PeriodMonth:    b.Period.Month,
			Value:          *e.Value,
			UpdatedAt:      m.now(),
		}
	}
	return len(b.Entries), nil
}

func (m *Memory) GetValues(ctx context.Context, kind domain.ValueKind, municipalityID int64, period domain.Period) ([]*domain.ValueRecord, error) {
	if err := m.call("GetValues"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []*domain.ValueRecord
	for k, rec := range m.values[kind] {
		if k.municipality == municipalityID && k.year == period.Year && k.month == period.Month {
			records = append(records, clone(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ItemID < records[j].ItemID })
	return records, nil
}

func (m *Memory) ListPeriods(ctx context.Context, kind domain.ValueKind) ([]*domain.Period, error) {
	if err := m.call("ListPeriods"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[domain.Period]bool)
	var periods []*domain.Period
	for k := range m.values[kind] {
		p := domain.Period{Year: k.year, Month: k.month}
		if !seen[p] {
			seen[p] = true
			periods = append(periods, &p)
		}
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Year != periods[j].Year {
			return periods[i].Year > periods[j].Year
		}
		return periods[i].Month > periods[j].Month
	})
	return periods, nil
}
