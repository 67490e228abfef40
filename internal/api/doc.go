// Package api defines wire-format types and converters for the HTTP API and
// the CLI's JSON output. It translates pipeline outcomes into the response
// contracts clients depend on without coupling them to internal types.
//
// # Key Types
//
// VideoRequest: inbound description with optional dimensions and quality.
//
// CodeResponse: the code endpoint verdict {code, scene_name, is_valid,
// validation_message}.
//
// VideoResponse: the video endpoint outcome with a base64 artifact on success
// and an error plus render logs on failure.
//
// HealthResponse and DaemonStatus: service and dependency status.
//
// # Converters
//
// VideoRequest.Input validates and normalizes a request into a
// pipeline.Input. FromCodeResponse, FromVideoOutcome and FileResultFrom
// assemble results for each endpoint.
//
// # Design Notes
//
// Field names use snake_case to keep the contract stable for existing
// clients. Optional video response fields are omitted rather than null.
package api
