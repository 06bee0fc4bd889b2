// Package server holds the HTTP server configuration.
//
// It is intentionally small: the Fiber app itself is constructed in the
// start command, and this package only carries the settings (listen port,
// API key) that the command and the auth middleware need.
package server
