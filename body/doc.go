// Package body defines request payload sources.
//
// A Source is one of a closed set of variants: nil (no body), Static bytes,
// a Dynamic writer callback, a File reopened per transmission, a reader
// wrapped by FromReader, or a SingleUse generator. Replayable reports whether
// the body may be sent again after a failed attempt or a redirect.
//
// Sources perform no network I/O. Transports read them through Open.
package body
