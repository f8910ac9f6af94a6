// Package version reports the httpkit build and the default User-Agent.
//
// The version and commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/httpkit/version.Version=1.0.0" ./cmd/httpkit
package version
