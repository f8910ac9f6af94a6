package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/resilience"
)

const sampleYAML = `
name: gateway
environment: staging
logging:
  level: debug
  format: json
pool:
  max_connections: 64
  idle_timeout: 45s
retry:
  max_attempts: 3
  min_sleep: 200ms
  max_sleep: 2s
clients:
  users:
    base_url: https://users.internal
    timeout: 5s
    headers:
      X-Team: core
    auth:
      type: bearer
      token: s3cret
  billing:
    base_url: https://billing.internal
    private_pool: true
    pool:
      max_connections: 8
    retry:
      max_attempts: 1
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gateway.yml", sampleYAML)

	var cfg ServiceConfig
	if err := Load("gateway", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Name != "gateway" || cfg.Environment != EnvStaging {
		t.Errorf("got name=%q env=%q", cfg.Name, cfg.Environment)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Pool.MaxConnections != 64 || cfg.Pool.IdleTimeout != 45*time.Second {
		t.Errorf("pool = %+v", cfg.Pool)
	}
	if cfg.Pool.MaxConnectionsPerServer != 20 {
		t.Errorf("pool defaults not applied: %+v", cfg.Pool)
	}

	users := cfg.Clients["users"]
	if users.Timeout != 5*time.Second {
		t.Errorf("users.timeout = %v", users.Timeout)
	}
	if users.Retry.MaxAttempts != 3 || users.Retry.MinSleep != 200*time.Millisecond {
		t.Errorf("users should inherit the service retry policy, got %+v", users.Retry)
	}
	if users.Auth == nil || users.Auth.Token != "s3cret" {
		t.Errorf("users.auth = %+v", users.Auth)
	}
	if got := users.Headers["x-team"]; got != "core" {
		t.Errorf("users.headers = %v", users.Headers)
	}

	billing := cfg.Clients["billing"]
	if !billing.PrivatePool || billing.Pool.MaxConnections != 8 {
		t.Errorf("billing = %+v", billing)
	}
	if billing.Retry.MaxAttempts != 1 {
		t.Errorf("billing keeps its own retry policy, got %+v", billing.Retry)
	}
	if got := cfg.ClientNames(); strings.Join(got, ",") != "billing,users" {
		t.Errorf("ClientNames = %v", got)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gateway.yml", sampleYAML)
	envPath := writeFile(t, dir, ".env", "GATEWAY_LOGGING_LEVEL=warn\n")

	t.Setenv("GATEWAY_POOL_MAX_CONNECTIONS", "99")
	t.Setenv("GATEWAY_CLIENTS_USERS_TIMEOUT", "750ms")
	t.Setenv("GATEWAY_TELEMETRY_ENDPOINT", "collector:4318")
	t.Cleanup(func() { _ = os.Unsetenv("GATEWAY_LOGGING_LEVEL") })

	var cfg ServiceConfig
	if err := Load("gateway", &cfg, WithConfigFile(path), WithEnvFile(envPath)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pool.MaxConnections != 99 {
		t.Errorf("pool.max_connections = %d", cfg.Pool.MaxConnections)
	}
	if cfg.Clients["users"].Timeout != 750*time.Millisecond {
		t.Errorf("clients.users.timeout = %v", cfg.Clients["users"].Timeout)
	}
	if cfg.Telemetry.Endpoint != "collector:4318" {
		t.Errorf("telemetry.endpoint = %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level from .env = %q", cfg.Logging.Level)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gateway.yml", sampleYAML)
	t.Setenv("GATEWAY_LOGGING_LEVEL", "warn")

	var cfg ServiceConfig
	err := Load("gateway", &cfg,
		WithConfigFile(path),
		WithOverride("logging.level", "error"),
		WithOverride("telemetry.endpoint", ""),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("override should win over env, got %q", cfg.Logging.Level)
	}
	if cfg.Telemetry.Endpoint != "" {
		t.Errorf("empty override should be ignored, got %q", cfg.Telemetry.Endpoint)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	var cfg ServiceConfig
	err := Load("gateway", &cfg, WithConfigFile(filepath.Join(dir, "missing.yml")))
	if !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("missing explicit file: got %v", err)
	}

	bad := writeFile(t, dir, "bad.yml", "name: gateway\npool:\n  max_connections: [1, 2]\n")
	err = Load("gateway", &cfg, WithConfigFile(bad))
	if !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Errorf("undecodable file: got %v", err)
	}

	invalid := writeFile(t, dir, "invalid.yml", "name: gateway\nenvironment: moon\n")
	err = Load("gateway", &cfg, WithConfigFile(invalid))
	if err == nil || !strings.Contains(err.Error(), "environment") {
		t.Errorf("invalid environment: got %v", err)
	}

	badClient := writeFile(t, dir, "client.yml", "name: gateway\nclients:\n  x:\n    base_url: ftp://nope\n")
	err = Load("gateway", &cfg, WithConfigFile(badClient))
	if !errors.IsKind(err, errors.KindInvalidArgument) || !strings.Contains(err.Error(), "clients.x") {
		t.Errorf("invalid client: got %v", err)
	}
}

type fakeFS struct {
	files map[string]bool
}

func (f fakeFS) Exists(path string) bool        { return f.files[path] }
func (f fakeFS) LoadEnv(string) error           { return nil }
func (f fakeFS) UserConfigDir() (string, error) { return "/home/u/.config", nil }

func TestResolver(t *testing.T) {
	tests := []struct {
		name       string
		files      []string
		wantConfig string
		wantEnv    string
	}{
		{"nothing", nil, "", ""},
		{"service file wins", []string{"svc.yml", "config.yml", ".env"}, "svc.yml", ".env"},
		{"config dir", []string{filepath.Join("config", "config.yml"), filepath.Join("config", ".env.svc")},
			filepath.Join("config", "config.yml"), filepath.Join("config", ".env.svc")},
		{"user config dir", []string{filepath.Join("/home/u/.config", "svc", "config.yml")},
			filepath.Join("/home/u/.config", "svc", "config.yml"), ""},
		{"service env first", []string{".env", ".env.svc"}, "", ".env.svc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := fakeFS{files: map[string]bool{}}
			for _, f := range tt.files {
				fs.files[f] = true
			}
			r := &Resolver{FileSystem: fs}
			got := r.ResolveFiles("svc", LoaderConfig{})
			if got.ConfigFile != tt.wantConfig || got.EnvFile != tt.wantEnv {
				t.Errorf("got %+v, want config=%q env=%q", got, tt.wantConfig, tt.wantEnv)
			}
		})
	}
}

func TestServiceConfig_Defaults(t *testing.T) {
	cfg := ServiceConfig{Name: "svc", Clients: map[string]httpclient.Config{"a": {}}}
	cfg.ApplyDefaults()

	if cfg.Environment != EnvDevelopment {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.Retry != resilience.DefaultRetryPolicy() {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Clients["a"].Timeout != 30*time.Second {
		t.Errorf("client defaults not applied: %+v", cfg.Clients["a"])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestServiceConfig_NewRegistry(t *testing.T) {
	cfg := ServiceConfig{Name: "svc", Clients: map[string]httpclient.Config{
		"shared":  {},
		"private": {PrivatePool: true},
	}}
	cfg.ApplyDefaults()

	reg, err := cfg.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer func() { _ = reg.Stop(t.Context()) }()

	if got := strings.Join(reg.Names(), ","); got != "private,shared" {
		t.Errorf("names = %s", got)
	}
	if reg.Pools().PrivateCount() != 1 {
		t.Errorf("private pools = %d", reg.Pools().PrivateCount())
	}
}

func TestServiceConfig_Redacted(t *testing.T) {
	cfg := ServiceConfig{Clients: map[string]httpclient.Config{
		"a": {Auth: &httpclient.AuthConfig{Type: httpclient.AuthBasic, Username: "me", Password: "pw"}},
		"b": {Auth: &httpclient.AuthConfig{Type: httpclient.AuthJWT, JWT: &httpclient.JWTConfig{Secret: "k"}}},
	}}
	out := cfg.Redacted()

	if out.Clients["a"].Auth.Password != redacted || out.Clients["a"].Auth.Username != "me" {
		t.Errorf("a = %+v", out.Clients["a"].Auth)
	}
	if out.Clients["b"].Auth.JWT.Secret != redacted {
		t.Errorf("b jwt secret = %q", out.Clients["b"].Auth.JWT.Secret)
	}
	if cfg.Clients["a"].Auth.Password != "pw" || cfg.Clients["b"].Auth.JWT.Secret != "k" {
		t.Error("Redacted must not modify the original")
	}
}

func TestLoad_Defaults(t *testing.T) {
	var cfg ServiceConfig
	err := Load("nofile", &cfg,
		WithFileSystem(fakeFS{files: map[string]bool{}}),
		WithDefault("name", "fallback"),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "fallback" {
		t.Errorf("name = %q", cfg.Name)
	}

	path := writeFile(t, t.TempDir(), "named.yml", "name: from-file\n")
	if err := Load("nofile", &cfg, WithConfigFile(path), WithDefault("name", "fallback")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-file" {
		t.Errorf("file should win over default, got %q", cfg.Name)
	}
}
