// Package services defines shared utilities consumed by the generation
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify which maps
//     a failure onto the taxonomy used by metrics and logs.
//
// Subpackages hold the integrations themselves, such as the completion
// provider clients under services/llm.
package services
