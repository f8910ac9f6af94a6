// Package errors provides the error taxonomy shared by all httpkit packages.
//
// Every failure carries a Kind from a closed set so callers can tell
// construction mistakes, body misuse, transport failures, cancellation and
// unexpected responses apart with KindOf or IsKind.
package errors
