package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"manimgen/internal/api"
	"manimgen/internal/config"
	"manimgen/internal/generator"
	"manimgen/internal/logging"
	"manimgen/internal/metrics"
	"manimgen/internal/pipeline"
)

const maxRequestBytes = 1 << 20

// GenerationService is the pipeline surface the HTTP handlers depend on.
type GenerationService interface {
	GenerateCode(ctx context.Context, in pipeline.Input) generator.CodeResponse
	GenerateVideo(ctx context.Context, in pipeline.Input) pipeline.VideoOutcome
	Health(ctx context.Context) pipeline.Health
}

type apiServer struct {
	bind    string
	logger  *slog.Logger
	service GenerationService
	metrics *metrics.Metrics

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, svc GenerationService, logger *slog.Logger, m *metrics.Metrics) (*apiServer, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("api server requires config and generation service")
	}
	bind := strings.TrimSpace(cfg.Server.Bind)
	if bind == "" {
		return nil, errors.New("server.bind is empty")
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logging.NewComponentLogger(logger, "api-server"),
		service: svc,
		metrics: m,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Server),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// routes builds the chi router. Health and metrics stay open; generation
// endpoints sit behind the bearer token when one is configured.
func (s *apiServer) routes(cfg config.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestIDMiddleware,
		middleware.RealIP,
		loggingMiddleware(s.logger, s.metrics),
		corsMiddleware(cfg.CORSOrigins),
		middleware.Recoverer,
	)

	r.Get("/", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(cfg.APIToken))
		r.Post("/generate-code", s.handleGenerateCode)
		r.Post("/generate-video", s.handleGenerateVideo)
		r.Post("/generate-video-file", s.handleGenerateVideoFile)
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.FromHealth(s.service.Health(r.Context())))
}

func (s *apiServer) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	logger := logging.WithContext(r.Context(), s.logger)
	logger.Info("/generate-code request received", logging.Int("width", in.Width), logging.Int("height", in.Height))

	resp := s.service.GenerateCode(r.Context(), in)
	logger.Info("/generate-code completed", logging.Bool("valid", resp.Valid))
	writeJSON(w, http.StatusOK, api.FromCodeResponse(resp))
}

func (s *apiServer) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	logger := logging.WithContext(r.Context(), s.logger)
	logger.Info("/generate-video request received", logging.Int("width", in.Width), logging.Int("height", in.Height))

	out := s.service.GenerateVideo(r.Context(), in)
	s.logOutcome(logger, "/generate-video", out)
	writeJSON(w, http.StatusOK, api.FromVideoOutcome(out))
}

func (s *apiServer) handleGenerateVideoFile(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	logger := logging.WithContext(r.Context(), s.logger)
	logger.Info("/generate-video-file request received", logging.Int("width", in.Width), logging.Int("height", in.Height))

	out := s.service.GenerateVideo(r.Context(), in)
	s.logOutcome(logger, "/generate-video-file", out)

	result := api.FileResultFrom(out)
	if result.Status != http.StatusOK {
		writeDetail(w, result.Status, result.Detail)
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", result.ContentDisposition())
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Body); err != nil {
		logger.Debug("artifact write interrupted", logging.Error(err))
	}
}

func (s *apiServer) logOutcome(logger *slog.Logger, route string, out pipeline.VideoOutcome) {
	switch {
	case !out.Code.Valid:
		logging.WarnWithContext(logger, "code generation failed", "generation_failed",
			logging.String("route", route),
			logging.String("message", out.Code.Message),
			logging.String(logging.FieldErrorHint, "simplify the description or retry"),
			logging.String(logging.FieldImpact, "no video rendered"),
		)
	case !out.Success():
		logging.ErrorWithContext(logger, "render failed", "render_failed",
			logging.String("route", route),
			logging.String("error", out.Render.Error),
			logging.String("stderr", strings.TrimSpace(out.Render.Stderr)),
			logging.String("stdout", strings.TrimSpace(out.Render.Stdout)),
		)
	default:
		logger.Info("render completed",
			logging.String("route", route),
			logging.String(logging.FieldScene, out.Code.SceneName),
			logging.Int("bytes", len(out.Render.Video)),
		)
	}
}

// decodeRequest reads and validates the JSON body. Failures are answered
// with 422 and a detail message.
func (s *apiServer) decodeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Input, bool) {
	var req api.VideoRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "request body too large"
		}
		writeDetail(w, http.StatusUnprocessableEntity, msg)
		return pipeline.Input{}, false
	}
	in, err := req.Input()
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return pipeline.Input{}, false
	}
	return in, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, api.ErrorResponse{Detail: detail})
}
