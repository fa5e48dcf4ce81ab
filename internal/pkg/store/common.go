package store

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

const (
	tableUsers             = "users"
	tableMunicipalities    = "municipalities"
	tableIndicatorsCatalog = "indicators_catalog"
	tableIndicatorValues   = "indicator_values"
	tableServicesCatalog   = "services_catalog"
	tableServiceValues     = "service_values"
)

var mapping = map[error]error{pgx.ErrNoRows: constants.ErrDBNotFound}

var codeMapping = map[string]error{
	xpgx.CodeUniqueViolation:     constants.ErrDBConflict,
	xpgx.CodeForeignKeyViolation: constants.ErrDBReferenced,
	xpgx.CodeUndefinedTable:      constants.ErrDBTableMissing,
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	for k, v := range mapping {
		if errors.Is(err, k) {
			return v
		}
	}
	if mapped, ok := codeMapping[xpgx.PgCode(err)]; ok {
		if ce, ok := mapped.(*constants.CodedError); ok {
			return ce.Wrap(err)
		}
		return errors.Join(mapped, err)
	}
	return err
}

// builder возвращает squirrel SQL Builder обьект.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
