// Package validation validates configuration structs.
//
// Struct tag validation uses go-playground/validator and reports fields by
// their mapstructure key:
//
//	type Config struct {
//	    MaxConnections int `mapstructure:"max_connections" validate:"gte=0"`
//	}
//	err := validation.Struct(cfg)
//
// Cross-field rules use the programmatic Validator:
//
//	err := validation.New().
//	    HTTPURL("base_url", cfg.BaseURL).
//	    Custom(cfg.MaxIdle <= cfg.Max, "max_idle", "must not exceed max").
//	    Err()
//
// Both return a single errors.KindInvalidArgument error.
package validation
