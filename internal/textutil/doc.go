// Package textutil provides text normalization helpers shared by the API
// surface and the CLI.
//
// The primary use cases are:
//   - Normalizing user descriptions to NFC before length checks
//   - Sanitizing scene names into safe attachment file names
package textutil
