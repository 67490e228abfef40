// Package sanitize rewrites known-incompatible constructs in generated scene
// code: deprecated keyword arguments and removed color constants.
//
// Rewrites are token-level byte edits located through the syntax tree, so
// only the documented substitutions change and Sanitize is idempotent.
package sanitize
