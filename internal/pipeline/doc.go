// Package pipeline composes the optimizer, the code generator and the render
// orchestrator into the two request flows served by the daemon and the CLI.
//
// GenerateCode always returns a structured verdict. GenerateVideo only
// renders code that passed validation. A panic anywhere below either flow is
// recovered and reported as an unexpected failure so one bad request never
// takes the process down.
package pipeline
