// Package server runs the short-lived loopback HTTP server behind the auth
// command. It serves exactly one OAuth2 authorization-code callback on the
// configured redirect address, exchanges the code for a token and shuts back
// down.
package server
