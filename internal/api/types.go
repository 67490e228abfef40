package api

// ContentTypeMP4 is the media type of rendered artifacts.
const ContentTypeMP4 = "video/mp4"

// VideoRequest is the body accepted by every generation endpoint.
type VideoRequest struct {
	Description string `json:"description"`
	Width       *int   `json:"width,omitempty"`
	Height      *int   `json:"height,omitempty"`
	Quality     string `json:"quality,omitempty"`
}

// CodeResponse is the code endpoint payload. It is always well formed, even
// when every attempt failed.
type CodeResponse struct {
	Code              string `json:"code"`
	SceneName         string `json:"scene_name"`
	IsValid           bool   `json:"is_valid"`
	ValidationMessage string `json:"validation_message"`
}

// VideoResponse is the video endpoint payload.
type VideoResponse struct {
	Success     bool   `json:"success"`
	VideoBase64 string `json:"video_base64,omitempty"`
	ContentType string `json:"content_type"`
	SceneName   string `json:"scene_name,omitempty"`
	Error       string `json:"error,omitempty"`
	RenderLogs  string `json:"render_logs,omitempty"`
}

// HealthResponse reports the renderer version and configured model.
type HealthResponse struct {
	Status       string `json:"status"`
	ManimVersion string `json:"manim_version"`
	OpenAIModel  string `json:"openai_model"`
}

// ErrorResponse carries a client or server error detail.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckStatus is the outcome of one preflight check.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates runtime information for the status command.
type DaemonStatus struct {
	Bind          string             `json:"bind"`
	DaemonRunning bool               `json:"daemon_running"`
	LockFilePath  string             `json:"lock_file_path"`
	Model         string             `json:"model"`
	ManimVersion  string             `json:"manim_version"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Checks        []CheckStatus      `json:"checks"`
}
