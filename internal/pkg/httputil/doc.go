// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Every response body is a JSON envelope with a success flag and a
// human-readable message, so the admin front-end can show the message as-is.
package httputil
