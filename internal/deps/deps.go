package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"manimgen/internal/config"
	"manimgen/internal/render"
)

// Requirement is an external binary a render shells out to. SearchDirs are
// probed in order before PATH, matching how the renderer builds the child
// PATH.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	SearchDirs  []string
}

// Status reports the availability of a dependency. Command holds the
// resolved path when the binary was found.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// RendererRequirements lists everything a render invokes: the configured
// manim binary, ffmpeg for encoding, and latex for Tex mobjects.
func RendererRequirements(cfg *config.Config) []Requirement {
	binary := "manim"
	texLiveDir := ""
	if cfg != nil {
		if b := strings.TrimSpace(cfg.Render.Binary); b != "" {
			binary = b
		}
		texLiveDir = cfg.Render.TexLiveDir
	}
	return []Requirement{
		{Name: "Manim", Command: binary, Description: "Renders generated scenes"},
		{Name: "FFmpeg", Command: "ffmpeg", Description: "Encodes rendered frames", Optional: true},
		latexRequirement(texLiveDir),
	}
}

func latexRequirement(texLiveDir string) Requirement {
	req := Requirement{
		Name:        "LaTeX",
		Command:     "latex",
		Description: "Typesets Tex and MathTex mobjects",
		Optional:    true,
	}
	if bin := render.TexLiveBinDir(texLiveDir); bin != "" {
		req.SearchDirs = []string{bin}
	}
	return req
}

// CheckRenderer evaluates every renderer dependency.
func CheckRenderer(cfg *config.Config) []Status {
	return CheckBinaries(RendererRequirements(cfg))
}

// CheckLaTeX reports the latex binary a render would execute, preferring the
// newest TeX Live install under texLiveDir.
func CheckLaTeX(texLiveDir string) Status {
	return Check(latexRequirement(texLiveDir))
}

// CheckBinaries evaluates the provided requirements in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, Check(req))
	}
	return results
}

// Check resolves a single requirement.
func Check(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	if !strings.ContainsRune(cmd, filepath.Separator) {
		for _, dir := range req.SearchDirs {
			candidate := filepath.Join(dir, cmd)
			if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
				status.Command = candidate
				status.Available = true
				return status
			}
		}
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Command = path
	status.Available = true
	return status
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
