// Package identity resolves a login into a live session.
//
// There are two independent paths. CredentialResolver takes an email and
// password, which the caller only submits after the challenge gate accepted
// the typed challenge; a failed login regenerates the challenge.
// ProofTokenResolver takes the payload decoded by a scanner and never
// touches the challenge. Both finish with session.Writer.Establish.
//
// Failures come back as *Failure, whose Message is the server's error text
// when there is one and a fixed fallback otherwise.
//
// # Scanning
//
// The decode loop itself is a collaborator behind the Scanner interface.
// ScanSession wraps one mount of it: the first decode is accepted and stops
// the scanner, later decodes are ignored, per-frame decode noise is dropped,
// and Close always releases the scanner. LineScanner reads payloads from a
// reader so a terminal or a file can stand in for a camera.
package identity
