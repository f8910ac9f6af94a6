// Package httpclient provides immutable HTTP requests, typed response
// handlers and a pooled net/http client.
//
// A Request is built once and never changes; FromRequest starts a new
// builder from an existing one. Header names compare case-insensitively and
// keep their insertion order. The body is a body.Source.
//
//	req, err := httpclient.PreparePost().
//		SetURI(uri.Parse("https://api.example.com").AppendPath("users").MustBuild()).
//		SetHeader("Content-Type", "application/json").
//		SetBodySource(body.String(`{"name":"jane"}`)).
//		Build()
//
// Clients are created through a Registry, which binds each one to the
// shared connection pool or to a private pool:
//
//	reg := httpclient.NewRegistry(pool.DefaultConfig())
//	users, err := reg.Register("users", httpclient.Config{BaseURL: "https://api.example.com"})
//
//	user, err := httpclient.Send(ctx, users, req, httpclient.JSONHandler[User]())
//
// Execute sends once; ExecuteWithRetry and Send retry through a
// resilience.RetryDriver. A ResponseHandler sees exactly one outcome per
// attempt: Handle for a response, HandleError for a transport failure.
//
// Before a request is sent the client runs its RequestFilters: registry-wide
// filters first, then User-Agent, X-Request-Id, default headers and
// authentication from Config.
package httpclient
