// Package logger provides structured logging for httpkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers fetched by name from a registry.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("pool")
//	log.Info("pool created", logger.Fields("pool", "shared"))
package logger
