// Package component defines the lifecycle contract for long-lived parts of
// an httpkit process and a Registry that starts them in order and stops
// them in reverse.
//
// httpclient.Registry is the main implementation: stopping it tears down
// every connection pool it owns exactly once.
package component
