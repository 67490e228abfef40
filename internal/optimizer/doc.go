// Package optimizer enriches a description before code generation.
//
// The call is best effort. Provider failures, malformed replies and missing
// fields all resolve to the original description plus the pack's default
// resource plan, reported through Result.Fallback and Result.Reason.
package optimizer
