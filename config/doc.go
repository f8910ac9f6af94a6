// Package config loads service configuration with Viper.
//
// Load reads a YAML file, an optional .env file and prefixed environment
// variables into a struct with mapstructure tags, then applies defaults and
// validates it:
//
//	var cfg config.ServiceConfig
//	if err := config.Load("httpkit", &cfg, config.WithConfigFile("httpkit.yml")); err != nil {
//		return err
//	}
//	reg, err := cfg.NewRegistry()
//
// With the service name "httpkit", HTTPKIT_POOL_MAX_CONNECTIONS=50 sets
// pool.max_connections and HTTPKIT_CLIENTS_USERS_TIMEOUT=5s sets the timeout
// of a client named "users" that the file declares.
package config
