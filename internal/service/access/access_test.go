package access

import (
	"testing"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/stretchr/testify/assert"
)

func id(v int64) *int64 {
	return &v
}

var actions = []Action{AggregateRead, Read, Write, Admin}

func TestAuthorize(t *testing.T) {
	operator := domain.Operator{ID: 3, Municipality: 42}

	tests := []struct {
		name     string
		identity domain.Identity
		req      Request
		allowed  bool
	}{
		{"governor aggregate", domain.Governor{ID: 2}, Request{Action: AggregateRead}, true},
		{"governor aggregate scoped", domain.Governor{ID: 2}, Request{Action: AggregateRead, MunicipalityID: id(42)}, false},
		{"governor read", domain.Governor{ID: 2}, Request{Action: Read, MunicipalityID: id(42)}, false},
		{"governor write", domain.Governor{ID: 2}, Request{Action: Write, MunicipalityID: id(42)}, false},
		{"governor admin", domain.Governor{ID: 2}, Request{Action: Admin}, false},
		{"operator own write", operator, Request{Action: Write, MunicipalityID: id(42)}, true},
		{"operator own read", operator, Request{Action: Read, MunicipalityID: id(42)}, true},
		{"operator own aggregate", operator, Request{Action: AggregateRead, MunicipalityID: id(42)}, true},
		{"operator unscoped aggregate", operator, Request{Action: AggregateRead}, false},
		{"operator foreign write", operator, Request{Action: Write, MunicipalityID: id(99)}, false},
		{"operator admin", operator, Request{Action: Admin, MunicipalityID: id(42)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.identity, tt.req)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, constants.ErrForbidden)
			}
		})
	}
}

func TestAdminNeverForbidden(t *testing.T) {
	scopes := []*int64{nil, id(1), id(42), id(99)}
	for _, action := range actions {
		for _, scope := range scopes {
			assert.NoError(t, Authorize(domain.Admin{ID: 1}, Request{Action: action, MunicipalityID: scope}), action.String())
		}
	}
}

func TestOperatorScopeIsolation(t *testing.T) {
	operator := domain.Operator{ID: 3, Municipality: 42}
	for other := int64(-5); other <= 200; other++ {
		if other == 42 {
			continue
		}
		for _, action := range actions {
			assert.ErrorIs(t, Authorize(operator, Request{Action: action, MunicipalityID: id(other)}), constants.ErrForbidden)
		}
	}
}

func TestRequireScope(t *testing.T) {
	assert.ErrorIs(t, RequireScope(nil), constants.ErrMissingScope)
	assert.True(t, constants.IsCode(RequireScope(nil), 400))
	assert.NoError(t, RequireScope(id(1)))
}

func TestMunicipalityFilter(t *testing.T) {
	assert.Nil(t, MunicipalityFilter(domain.Admin{ID: 1}))
	assert.Nil(t, MunicipalityFilter(domain.Governor{ID: 2}))
	assert.Equal(t, id(42), MunicipalityFilter(domain.Operator{ID: 3, Municipality: 42}))

	assert.Equal(t, id(42), ScopeFor(domain.Operator{ID: 3, Municipality: 42}, nil))
	assert.Equal(t, id(7), ScopeFor(domain.Operator{ID: 3, Municipality: 42}, id(7)))
	assert.Nil(t, ScopeFor(domain.Admin{ID: 1}, nil))
}
