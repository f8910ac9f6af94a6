package httpclient

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/uri"
	"github.com/kbukum/httpkit/validation"
)

// AuthType identifies the authentication method.
type AuthType string

const (
	// AuthNone disables authentication.
	AuthNone AuthType = "none"
	// AuthBearer sends a static bearer token.
	AuthBearer AuthType = "bearer"
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic AuthType = "basic"
	// AuthAPIKey sends an API key in a header or query parameter.
	AuthAPIKey AuthType = "api_key"
	// AuthJWT mints short-lived HS256 tokens sent as bearer tokens.
	AuthJWT AuthType = "jwt"
)

const (
	defaultAPIKeyHeader = "X-API-Key"
	defaultJWTTTL       = 5 * time.Minute
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=none bearer basic api_key jwt"`
	// Token is the bearer token (AuthBearer).
	Token string `yaml:"token,omitempty" mapstructure:"token"`
	// Username is the basic auth username (AuthBasic).
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	// Password is the basic auth password (AuthBasic).
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	// Key is the API key value (AuthAPIKey).
	Key string `yaml:"key,omitempty" mapstructure:"key"`
	// In places the API key in the "header" (default) or the "query".
	In string `yaml:"in,omitempty" mapstructure:"in" validate:"omitempty,oneof=header query"`
	// Name is the header or query parameter name. Defaults to X-API-Key.
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// JWT configures token minting (AuthJWT).
	JWT *JWTConfig `yaml:"jwt,omitempty" mapstructure:"jwt"`
}

// JWTConfig configures HS256 service tokens.
type JWTConfig struct {
	Secret   string        `yaml:"secret" mapstructure:"secret" validate:"required"`
	Issuer   string        `yaml:"issuer,omitempty" mapstructure:"issuer"`
	Subject  string        `yaml:"subject,omitempty" mapstructure:"subject"`
	Audience string        `yaml:"audience,omitempty" mapstructure:"audience"`
	TTL      time.Duration `yaml:"ttl,omitempty" mapstructure:"ttl" validate:"gte=0"`
}

// Filter returns the request filter implementing the configuration, or nil
// for no authentication.
func (a *AuthConfig) Filter() (RequestFilter, error) {
	if a == nil {
		return nil, nil
	}
	switch a.Type {
	case "", AuthNone:
		return nil, nil
	case AuthBearer:
		if err := validation.New().Required("auth.token", a.Token).Err(); err != nil {
			return nil, err
		}
		return BearerAuth(a.Token), nil
	case AuthBasic:
		return BasicAuth(a.Username, a.Password), nil
	case AuthAPIKey:
		v := validation.New().
			Required("auth.key", a.Key).
			OneOf("auth.in", a.In, []string{"header", "query"})
		if a.In == "query" {
			v.Required("auth.name", a.Name)
		}
		if err := v.Err(); err != nil {
			return nil, err
		}
		name := a.Name
		if a.In == "query" {
			return APIKeyQueryAuth(name, a.Key), nil
		}
		if name == "" {
			name = defaultAPIKeyHeader
		}
		return APIKeyAuth(name, a.Key), nil
	case AuthJWT:
		if a.JWT == nil {
			return nil, errors.InvalidArgument("auth.jwt: is required")
		}
		if err := validation.New().Required("auth.jwt.secret", a.JWT.Secret).Err(); err != nil {
			return nil, err
		}
		return JWTAuth(*a.JWT), nil
	default:
		return nil, errors.InvalidArgument("auth: unknown type %q", a.Type)
	}
}

func setHeader(name, value string) RequestFilter {
	return RequestFilterFunc(func(_ context.Context, req *Request) (*Request, error) {
		return FromRequest(req).SetHeader(name, value).Build()
	})
}

// BearerAuth sets "Authorization: Bearer <token>".
func BearerAuth(token string) RequestFilter {
	return setHeader("Authorization", "Bearer "+token)
}

// BasicAuth sets HTTP Basic credentials.
func BasicAuth(username, password string) RequestFilter {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return setHeader("Authorization", "Basic "+creds)
}

// APIKeyAuth sends key in the named header.
func APIKeyAuth(header, key string) RequestFilter {
	return setHeader(header, key)
}

// APIKeyQueryAuth sends key as the named query parameter, replacing any
// existing values.
func APIKeyQueryAuth(param, key string) RequestFilter {
	return RequestFilterFunc(func(_ context.Context, req *Request) (*Request, error) {
		u, err := uri.From(req.URI()).ReplaceParameter(param, key).Build()
		if err != nil {
			return nil, err
		}
		return FromRequest(req).SetURI(u).Build()
	})
}

// JWTAuth signs HS256 tokens with cfg.Secret and sends them as bearer
// tokens. A token is reused until a fifth of its lifetime remains.
func JWTAuth(cfg JWTConfig) RequestFilter {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultJWTTTL
	}
	m := &jwtMinter{cfg: cfg, now: time.Now}
	return RequestFilterFunc(func(_ context.Context, req *Request) (*Request, error) {
		token, err := m.token()
		if err != nil {
			return nil, err
		}
		return FromRequest(req).SetHeader("Authorization", "Bearer "+token).Build()
	})
}

type jwtMinter struct {
	cfg JWTConfig
	now func() time.Time

	mu      sync.Mutex
	current string
	renewAt time.Time
}

func (m *jwtMinter) token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.current != "" && now.Before(m.renewAt) {
		return m.current, nil
	}

	claims := jwt.RegisteredClaims{
		Issuer:    m.cfg.Issuer,
		Subject:   m.cfg.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
		ID:        uuid.NewString(),
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", errors.IllegalState("auth: signing jwt").WithCause(err)
	}
	m.current = signed
	m.renewAt = now.Add(m.cfg.TTL * 4 / 5)
	return signed, nil
}
