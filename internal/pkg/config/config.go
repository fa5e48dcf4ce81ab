package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP      HTTP
	AppEnv    string
	DB        DB
	RedisURL  string
	Session   Session
	Auth      Auth
	Import    Import
	Dashboard Dashboard
	Log       Log
}

type HTTP struct {
	Addr        string
	CORSOrigins []string
	BodyLimit   string
}

type DB struct {
	PrimaryDSN       string
	ReplicaDSN       string
	MaxConns         int32
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
	QueryTimeout     time.Duration
}

type Session struct {
	Secret       string
	TTL          time.Duration
	CookieSecure bool
}

type Auth struct {
	BcryptCost     int
	MinPasswordLen int
}

type Import struct {
	MaxFileSize     int64
	SummaryPatterns []string
}

type Dashboard struct {
	RecentMaxLimit int
}

type Log struct {
	Level       string
	Development bool
}

func (c Config) Production() bool {
	return c.AppEnv == constants.EnvProduction
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(constants.ViperHTTPAddr, ":8080")
	v.SetDefault(constants.ViperHTTPCORSOrigins, []string{"http://localhost:3000"})
	v.SetDefault(constants.ViperHTTPBodyLimit, "12M")
	v.SetDefault(constants.ViperAppEnv, constants.EnvDevelopment)

	v.SetDefault(constants.ViperDBMaxConns, 20)
	v.SetDefault(constants.ViperDBConnectTimeout, 10*time.Second)
	v.SetDefault(constants.ViperDBStatementTimeout, 30*time.Second)
	v.SetDefault(constants.ViperDBQueryTimeout, 30*time.Second)

	v.SetDefault(constants.ViperRedisURL, "redis://localhost:6379/0")

	v.SetDefault(constants.ViperSessionTTL, 8*time.Hour)
	v.SetDefault(constants.ViperSessionCookieSecure, false)

	v.SetDefault(constants.ViperAuthBcryptCost, 12)
	v.SetDefault(constants.ViperAuthMinPasswordLen, 8)

	v.SetDefault(constants.ViperImportMaxFileSize, 10<<20)
	v.SetDefault(constants.ViperImportSummaryPatterns, []string{"липецкая область", "итого", "всего по"})

	v.SetDefault(constants.ViperDashboardRecentMaxLimit, 100)

	v.SetDefault(constants.ViperLogLevel, "info")
	v.SetDefault(constants.ViperLogDevelopment, false)
}

// Load читает конфигурацию из файла (если path не пустой) и переменных окружения PORTAL_*.
func Load(path string) (Config, error) {
	v := viper.GetViper()
	setDefaults(v)

	v.SetEnvPrefix("portal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("viper.ReadInConfig: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTP: HTTP{
			Addr:        v.GetString(constants.ViperHTTPAddr),
			CORSOrigins: v.GetStringSlice(constants.ViperHTTPCORSOrigins),
			BodyLimit:   v.GetString(constants.ViperHTTPBodyLimit),
		},
		AppEnv: v.GetString(constants.ViperAppEnv),
		DB: DB{
			PrimaryDSN:       v.GetString(constants.ViperDBPrimaryDSN),
			ReplicaDSN:       v.GetString(constants.ViperDBReplicaDSN),
			MaxConns:         v.GetInt32(constants.ViperDBMaxConns),
			ConnectTimeout:   v.GetDuration(constants.ViperDBConnectTimeout),
			StatementTimeout: v.GetDuration(constants.ViperDBStatementTimeout),
			QueryTimeout:     v.GetDuration(constants.ViperDBQueryTimeout),
		},
		RedisURL: v.GetString(constants.ViperRedisURL),
		Session: Session{
			Secret:       v.GetString(constants.ViperSessionSecret),
			TTL:          v.GetDuration(constants.ViperSessionTTL),
			CookieSecure: v.GetBool(constants.ViperSessionCookieSecure),
		},
		Auth: Auth{
			BcryptCost:     v.GetInt(constants.ViperAuthBcryptCost),
			MinPasswordLen: v.GetInt(constants.ViperAuthMinPasswordLen),
		},
		Import: Import{
			MaxFileSize:     v.GetInt64(constants.ViperImportMaxFileSize),
			SummaryPatterns: v.GetStringSlice(constants.ViperImportSummaryPatterns),
		},
		Dashboard: Dashboard{
			RecentMaxLimit: v.GetInt(constants.ViperDashboardRecentMaxLimit),
		},
		Log: Log{
			Level:       v.GetString(constants.ViperLogLevel),
			Development: v.GetBool(constants.ViperLogDevelopment),
		},
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.DB.PrimaryDSN == "" {
		errs = append(errs, fmt.Errorf("%s is required", constants.ViperDBPrimaryDSN))
	}
	if c.Session.Secret == "" {
		errs = append(errs, fmt.Errorf("%s is required", constants.ViperSessionSecret))
	}
	if c.Auth.BcryptCost < 12 {
		errs = append(errs, fmt.Errorf("%s must be at least 12", constants.ViperAuthBcryptCost))
	}
	if c.Session.TTL <= 0 || c.Session.TTL > 24*time.Hour {
		errs = append(errs, fmt.Errorf("%s must be within (0, 24h]", constants.ViperSessionTTL))
	}
	if c.Dashboard.RecentMaxLimit <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", constants.ViperDashboardRecentMaxLimit))
	}
	return errors.Join(errs...)
}
