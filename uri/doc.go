// Package uri builds request URIs with a fixed percent-encoding policy.
//
// Path segments and query components are encoded from their decoded form:
// unreserved characters and most sub-delimiters pass through, while space,
// '#', '%', '?', '+', brackets, braces, non-ASCII bytes and the like become
// upper-case %XX escapes. Query names and values additionally escape '&' and
// '='. A URI loaded with From keeps its original encoding until the path or
// query is modified, so From(u).Build() reproduces u.
//
//	u, err := uri.Parse("https://api.example.com/v1").
//		AppendPath("users/jane doe").
//		AddParameter("expand", "groups").
//		Build()
//	// https://api.example.com/v1/users/jane%20doe?expand=groups
package uri
