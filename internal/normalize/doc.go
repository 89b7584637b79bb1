// Package normalize turns server-shaped JSON into render-safe records.
//
// Every record type has one normalizer. Each accepts either the decoded JSON
// (map[string]any) or its own output type, substitutes a fixed default for
// every field that is missing, empty, or of the wrong shape, and is
// idempotent: normalizing a normalized record returns it unchanged.
//
// Structured values where a display string is expected (for example an
// encrypted email stored as an object) render as Protected and never leak
// their contents.
package normalize
