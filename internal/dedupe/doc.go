// Package dedupe collapses repeated signals that arrive within a short window.
//
// The dashboard receives one session-expiry signal per rejected request; when
// several requests are in flight they all fail together. A Window keyed by the
// rejected token lets exactly one of them trigger the logout.
package dedupe
