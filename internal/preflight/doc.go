// Package preflight provides readiness checks for the completion provider,
// the manim renderer, and the filesystem paths manimgen writes into.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check so a
//     misconfigured key or unwritable state directory is visible before the
//     first request arrives.
//   - The CLI "manimgen status" command uses the individual check functions
//     (CheckLLM, CheckRenderer, CheckDirectoryAccess) to display health.
package preflight
