// Package config reads the nullguard server configuration from the
// environment.
package config

import (
	"errors"
	"strings"

	"github.com/jacksonlee411/nullguard/pkg/authz"
	"github.com/jacksonlee411/nullguard/pkg/nullability/fields"
)

type ResolverKind string

const (
	ResolverMap ResolverKind = "map"
	ResolverCEL ResolverKind = "cel"
)

type Server struct {
	HTTPAddr         string `env:"HTTP_ADDR" envDefault:":8080"`
	DeclarationsPath string `env:"NULLGUARD_DECLARATIONS_PATH"`
	DatabaseURL      string `env:"DATABASE_URL"`
	TenantID         string `env:"NULLGUARD_TENANT_ID"`
	Resolver         string `env:"NULLGUARD_RESOLVER" envDefault:"map"`
	MissingField     string `env:"NULLGUARD_MISSING_FIELD" envDefault:"fatal"`
	LogLevel         string `env:"NULLGUARD_LOG_LEVEL" envDefault:"info"`

	// Callers without the gateway secret run as DefaultRole in TenantID.
	GatewaySecret string `env:"NULLGUARD_GATEWAY_SECRET"`
	DefaultRole   string `env:"NULLGUARD_DEFAULT_ROLE"`

	AuthzMode          string `env:"AUTHZ_MODE"`
	AuthzAllowDisabled bool   `env:"AUTHZ_UNSAFE_ALLOW_DISABLED"`
	AuthzModelPath     string `env:"AUTHZ_MODEL_PATH"`
	AuthzPolicyPath    string `env:"AUTHZ_POLICY_PATH"`
}

// Settings is Server after every enum has been checked.
type Settings struct {
	Server

	ResolverKind     ResolverKind
	MissingFieldMode fields.MissingFieldMode
	Authorization    authz.Mode
}

// Load parses the environment and checks the values that would otherwise
// fail later at startup.
func Load() (Settings, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Settings{}, err
	}
	return cfg.Settings()
}

func (c Server) Settings() (Settings, error) {
	s := Settings{Server: c}

	switch ResolverKind(strings.ToLower(strings.TrimSpace(c.Resolver))) {
	case "", ResolverMap:
		s.ResolverKind = ResolverMap
	case ResolverCEL:
		s.ResolverKind = ResolverCEL
	default:
		return Settings{}, errors.New("config: invalid NULLGUARD_RESOLVER (expected map|cel)")
	}

	mode, err := fields.ParseMissingFieldMode(c.MissingField)
	if err != nil {
		return Settings{}, err
	}
	s.MissingFieldMode = mode

	s.Authorization, err = authz.ParseMode(c.AuthzMode, c.AuthzAllowDisabled)
	if err != nil {
		return Settings{}, err
	}

	s.DeclarationsPath = strings.TrimSpace(c.DeclarationsPath)
	s.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	s.TenantID = strings.TrimSpace(c.TenantID)
	s.DefaultRole = strings.TrimSpace(c.DefaultRole)
	if s.DeclarationsPath == "" && s.DatabaseURL == "" {
		return Settings{}, errors.New("config: NULLGUARD_DECLARATIONS_PATH or DATABASE_URL is required")
	}
	if s.DatabaseURL != "" && s.DeclarationsPath == "" && s.TenantID == "" {
		return Settings{}, errors.New("config: NULLGUARD_TENANT_ID is required with DATABASE_URL")
	}
	return s, nil
}

// Postgres reports whether declarations are served from the database.
func (s Settings) Postgres() bool {
	return s.DeclarationsPath == "" && s.DatabaseURL != ""
}
