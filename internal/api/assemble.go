package api

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"manimgen/internal/generator"
	"manimgen/internal/pipeline"
	"manimgen/internal/textutil"
)

// FromCodeResponse converts a generator verdict to its wire form.
func FromCodeResponse(resp generator.CodeResponse) CodeResponse {
	return CodeResponse{
		Code:              resp.Code,
		SceneName:         resp.SceneName,
		IsValid:           resp.Valid,
		ValidationMessage: resp.Message,
	}
}

// CodeFailureMessage is the error reported when no valid code was produced.
func CodeFailureMessage(resp generator.CodeResponse) string {
	return "Code generation failed: " + resp.Message
}

// FromVideoOutcome converts a video flow outcome to its wire form. The
// artifact is base64 encoded; render logs carry the renderer's stderr.
func FromVideoOutcome(out pipeline.VideoOutcome) VideoResponse {
	resp := VideoResponse{ContentType: ContentTypeMP4}
	switch {
	case !out.Code.Valid:
		resp.Error = CodeFailureMessage(out.Code)
	case !out.Success():
		resp.Error = out.Render.Error
		resp.RenderLogs = out.Render.Stderr
		if resp.Error == "" {
			resp.Error = "Render failed"
		}
	default:
		resp.Success = true
		resp.VideoBase64 = base64.StdEncoding.EncodeToString(out.Render.Video)
		resp.SceneName = out.Code.SceneName
	}
	return resp
}

// FileResult is the download endpoint outcome. A non-2xx Status carries
// Detail; otherwise Body holds the artifact.
type FileResult struct {
	Status      int
	Detail      string
	Body        []byte
	ContentType string
	FileName    string
}

// FileResultFrom converts a video flow outcome to a download response.
func FileResultFrom(out pipeline.VideoOutcome) FileResult {
	switch {
	case !out.Code.Valid:
		return FileResult{Status: http.StatusBadRequest, Detail: CodeFailureMessage(out.Code)}
	case !out.Success():
		return FileResult{
			Status: http.StatusInternalServerError,
			Detail: fmt.Sprintf("Render failed: %s\n%s", out.Render.Error, out.Render.Stderr),
		}
	default:
		return FileResult{
			Status:      http.StatusOK,
			Body:        out.Render.Video,
			ContentType: ContentTypeMP4,
			FileName:    textutil.AttachmentName(out.Code.SceneName, ".mp4"),
		}
	}
}

// ContentDisposition returns the attachment header value for the result.
func (f FileResult) ContentDisposition() string {
	return fmt.Sprintf("attachment; filename=%q", f.FileName)
}

// FromHealth converts a pipeline health probe to its wire form.
func FromHealth(h pipeline.Health) HealthResponse {
	return HealthResponse{
		Status:       "healthy",
		ManimVersion: h.RendererVersion,
		OpenAIModel:  h.Model,
	}
}
