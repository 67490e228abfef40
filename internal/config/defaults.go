package config

const (
	defaultServerBind           = "127.0.0.1:8000"
	defaultStateDir             = "~/.local/share/manimgen"
	defaultReadTimeoutSeconds   = 30
	defaultWriteTimeoutSeconds  = 900
	defaultLLMProvider          = ProviderOpenAI
	defaultOpenAIModel          = "gpt-4o-mini"
	defaultGeminiModel          = "gemini-2.5-flash"
	defaultLLMTitle             = "manimgen"
	defaultLLMTimeoutSeconds    = 120
	defaultRenderBinary         = "manim"
	defaultRenderTimeoutSeconds = 120
	defaultRenderQuality        = "l"
	defaultRenderFPS            = 60
	defaultRenderWidth          = 1920
	defaultRenderHeight         = 1080
	defaultTexLiveDir           = "~/texlive"
	defaultKillGraceSeconds     = 2
	defaultMaxAttempts          = 3
	maxAttemptsCeiling          = 5
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Supported completion providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:                defaultServerBind,
			CORSOrigins:         []string{"*"},
			StateDir:            defaultStateDir,
			ReadTimeoutSeconds:  defaultReadTimeoutSeconds,
			WriteTimeoutSeconds: defaultWriteTimeoutSeconds,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Render: Render{
			Binary:           defaultRenderBinary,
			TimeoutSeconds:   defaultRenderTimeoutSeconds,
			Quality:          defaultRenderQuality,
			FPS:              defaultRenderFPS,
			DefaultWidth:     defaultRenderWidth,
			DefaultHeight:    defaultRenderHeight,
			TexLiveDir:       defaultTexLiveDir,
			KillGraceSeconds: defaultKillGraceSeconds,
		},
		Generation: Generation{
			MaxAttempts:    defaultMaxAttempts,
			OptimizePrompt: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
