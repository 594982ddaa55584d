// Package services defines the error markers and context helpers shared by
// every reelmatch component.
//
// Wrap tags a failure with one of the sentinel markers (not found,
// unavailable, poster unavailable, ...) so callers can classify it with
// errors.Is; HTTPStatus and Kind turn that classification into API responses.
// The request ID helpers carry correlation identifiers from the HTTP layer
// into log lines.
package services
