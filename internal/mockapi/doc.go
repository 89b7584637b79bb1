// ABOUTME: Package documentation for the development backend
// ABOUTME: Describes what the in-memory service models and what it leaves out

// Package mockapi is an in-memory implementation of the school record
// service the dashboard talks to. It exists for local development and for
// contract tests: tokens are real HS256 JWTs, passwords are bcrypt hashed,
// emails are sealed at rest, and the audit log is a sha256 hash chain that
// can be tampered with to exercise intrusion detection.
//
// Nothing is persisted. Handler returns a gin engine that serves every
// route under /api.
package mockapi
