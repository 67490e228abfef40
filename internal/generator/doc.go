// Package generator turns an optimized prompt into validated scene code.
//
// Each attempt makes exactly one completion call, extracts the fenced python
// block, sanitizes it, finds the scene class and runs the static validator.
// The first valid attempt ends the loop. After the attempt budget is spent
// the last attempt's code and failure reason are returned with Valid=false.
// Provider errors consume the attempt; there is no backoff.
package generator
