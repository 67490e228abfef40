// Package prompts owns the static prompt text sent to the completion provider
// and the builders that turn a request into provider conversations.
//
// The pack is embedded from prompts.yaml and may be replaced at runtime with
// generation.prompts_path. VideoSpec carries the resolution, frame rate and
// orientation directive computed once per request.
package prompts
