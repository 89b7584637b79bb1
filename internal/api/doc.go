// Package api is the client for the remote record service.
//
// # Overview
//
// The service exposes REST endpoints under a base URL such as
// http://localhost:3000/api and answers with JSON. Every request carries the
// live session token as a bearer credential when one is present; endpoints
// that only make sense with a session return ErrNoSession without touching
// the network when the token is empty.
//
// List and record endpoints return decoded but unvalidated JSON ([]any,
// map[string]any). Callers pass these through the normalize package before
// rendering anything.
//
// # Errors
//
//   - *Error: the server answered with a non-2xx status. Message holds the
//     body's "error" field, then "message", then the raw text.
//   - ErrNetwork: no response was received.
//   - ErrNotArray, ErrShape: the response did not have the expected shape.
//   - ErrSessionExpired: matched via errors.Is on a 401/403 *Error whose text
//     contains one of the known expiry signatures. These are also delivered to
//     the handler registered with SetExpiryHandler.
//
// Message(err, fallback) turns any of these into the text a view shows.
//
// # Usage
//
//	client := api.New(cfg.API.BaseURL, sessions, api.WithTimeout(cfg.API.Timeout))
//	client.SetExpiryHandler(func(err error) { ... })
//	users, err := client.ListUsers(ctx)
package api
