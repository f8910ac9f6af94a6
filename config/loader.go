package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

// FileSystem abstracts the file operations of the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	UserConfigDir() (string, error)
}

// RealFileSystem implements FileSystem on the operating system.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadEnv loads a .env file without overriding variables already set.
func (RealFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

func (RealFileSystem) UserConfigDir() (string, error) { return os.UserConfigDir() }

// Resolver finds the config and .env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles holds the files chosen by a Resolver. Empty means none.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths from opts, searching for the ones
// not given.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(r.configCandidates(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first([]string{
			".env." + serviceName,
			".env",
			filepath.Join("config", ".env."+serviceName),
			filepath.Join("config", ".env"),
		})
	}
	return resolved
}

func (r *Resolver) configCandidates(serviceName string) []string {
	paths := []string{
		serviceName + ".yml",
		serviceName + ".yaml",
		filepath.Join("config", serviceName+".yml"),
		filepath.Join("config", "config.yml"),
		"config.yml",
	}
	if dir, err := r.FileSystem.UserConfigDir(); err == nil && dir != "" {
		paths = append(paths, filepath.Join(dir, serviceName, "config.yml"))
	}
	return paths
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// LoaderConfig holds loader dependencies and overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	// ConfigFile is an explicit config file. It must exist.
	ConfigFile string
	// EnvFile is an explicit .env file. It must exist.
	EnvFile string
	// EnvPrefix selects the environment variables that override file
	// values. Defaults to the upper-cased service name.
	EnvPrefix string
	// Defaults apply when no source sets a key, keyed by dotted path.
	Defaults map[string]any
	// Overrides are applied last, keyed by dotted path.
	Overrides map[string]any
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithOverride sets key (a dotted path such as "logging.level") after every
// other source. Empty string values are ignored.
func WithOverride(key string, value any) LoaderOption {
	return func(lc *LoaderConfig) {
		if s, ok := value.(string); ok && s == "" {
			return
		}
		if lc.Overrides == nil {
			lc.Overrides = make(map[string]any)
		}
		lc.Overrides[key] = value
	}
}

// WithDefault sets the value of key when no other source provides one.
func WithDefault(key string, value any) LoaderOption {
	return func(lc *LoaderConfig) {
		if lc.Defaults == nil {
			lc.Defaults = make(map[string]any)
		}
		lc.Defaults[key] = value
	}
}

// Defaulter is implemented by configs with default values.
type Defaulter interface{ ApplyDefaults() }

// Validator is implemented by configs that can check themselves.
type Validator interface{ Validate() error }

// Load reads the configuration of serviceName into cfg, a pointer to a
// struct with mapstructure tags. Sources, lowest precedence first: the
// config file, the .env file, the environment, then overrides. Durations
// may be written as "250ms" and lists as comma-separated strings. cfg's
// ApplyDefaults and Validate methods run afterwards when present.
func Load(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{EnvPrefix: envPrefix(serviceName)}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}

	for _, explicit := range []string{lc.ConfigFile, lc.EnvFile} {
		if explicit != "" && !lc.FileSystem.Exists(explicit) {
			return errors.InvalidArgument("config file %s does not exist", explicit).WithOp("config.load")
		}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)
	log := logger.Get("config")

	v := viper.New()
	for key, value := range lc.Defaults {
		v.SetDefault(key, value)
	}
	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.InvalidArgument("cannot read config file %s", files.ConfigFile).
				WithOp("config.load").WithCause(err)
		}
		log.Debug("config file loaded", logger.Fields("path", files.ConfigFile))
	}
	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return errors.InvalidArgument("cannot read env file %s", files.EnvFile).
				WithOp("config.load").WithCause(err)
		}
		log.Debug("env file loaded", logger.Fields("path", files.EnvFile))
	}

	bindEnv(v, lc.EnvPrefix, knownKeys(v, cfg))
	for key, value := range lc.Overrides {
		v.Set(key, value)
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return errors.InvalidArgument("cannot decode config for %s", serviceName).
			WithOp("config.load").WithCause(err)
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}
	if val, ok := cfg.(Validator); ok {
		return val.Validate()
	}
	return nil
}

func envPrefix(serviceName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(serviceName))
}

// bindEnv sets every key that has a PREFIX_KEY_PATH environment variable.
// Keys are matched with dots and underscores treated alike, so
// HTTPKIT_POOL_MAX_CONNECTIONS sets pool.max_connections.
func bindEnv(v *viper.Viper, prefix string, keys []string) {
	if prefix != "" {
		prefix += "_"
	}
	byEnv := make(map[string]string, len(keys))
	for _, key := range keys {
		byEnv[prefix+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if key, found := byEnv[name]; found {
			v.Set(key, value)
		}
	}
}

// knownKeys returns the keys of the config file plus every path reachable
// through the mapstructure tags of cfg.
func knownKeys(v *viper.Viper, cfg any) []string {
	keys := v.AllKeys()
	t := reflect.TypeOf(cfg)
	if t != nil {
		keys = structKeys(t, "", keys)
	}
	return keys
}

func structKeys(t reflect.Type, prefix string, out []string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		if prefix != "" {
			out = append(out, prefix)
		}
		return out
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if opts == "squash" {
			out = structKeys(f.Type, prefix, out)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		switch ft := indirect(f.Type); {
		case ft.Kind() == reflect.Struct && ft.PkgPath() != "time":
			out = structKeys(ft, name, out)
		case ft.Kind() == reflect.Func || ft.Kind() == reflect.Map:
			// Map entries are only known from the config file.
		default:
			out = append(out, name)
		}
	}
	return out
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
