// Package server exposes the dluxgate pipeline over HTTP. It holds no
// decision logic of its own: it extracts (author, permlink, request context)
// from the route, calls the pipeline and maps errors to status codes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dlux-io/dluxgate/core"
	"github.com/dlux-io/dluxgate/core/assets"
)

// Pipeline is the part of the gateway service the HTTP layer needs.
type Pipeline interface {
	Render(ctx context.Context, kind core.ArtifactKind, author, permlink string, rc core.RequestContext) (*core.Artifact, error)
	DApp(ctx context.Context, author, permlink string) (*core.Artifact, error)
}

// Options configures the HTTP layer.
type Options struct {
	Origin           string // canonical site, target of every fallback redirect
	EnforceSubdomain bool   // dApps only load on their author's subdomain
	TrustProxy       bool   // honor X-Forwarded-* headers
	Logger           *zap.Logger
}

// Server routes requests into the pipeline.
type Server struct {
	pipeline Pipeline
	opts     Options
	logger   *zap.Logger
	started  time.Time
}

// New creates a Server.
func New(p Pipeline, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Origin = strings.TrimSuffix(opts.Origin, "/")
	return &Server{pipeline: p, opts: opts, logger: opts.Logger, started: time.Now()}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/hm", s.health)
	r.Get("/@{un}", s.userRedirect)

	for _, prefix := range []string{"", "/{tag}"} {
		r.Get(prefix+"/@{un}/{permlink}/service-worker.js", s.artifact(core.ArtifactServiceWorker))
		r.Get(prefix+"/@{un}/{permlink}/manifest.webmanifest", s.artifact(core.ArtifactManifest))
		r.Get(prefix+"/@{un}/{permlink}/preview", s.artifact(core.ArtifactHTML))
		r.Get(prefix+"/@{un}/{permlink}", s.dapp)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]float64{"uptime": time.Since(s.started).Seconds()})
}

func (s *Server) userRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.opts.Origin+"/@"+chi.URLParam(r, "un"), http.StatusFound)
}

func (s *Server) artifact(kind core.ArtifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author, permlink := chi.URLParam(r, "un"), chi.URLParam(r, "permlink")
		art, err := s.pipeline.Render(r.Context(), kind, author, permlink, s.requestContext(r))
		if err != nil {
			status := StatusFor(err)
			s.logError(r, status, err, zap.String("artifact", string(kind)))
			http.Error(w, http.StatusText(status), status)
			return
		}
		w.Header().Set("Content-Type", art.ContentType)
		_, _ = w.Write(art.Body)
	}
}

func (s *Server) dapp(w http.ResponseWriter, r *http.Request) {
	author, permlink := chi.URLParam(r, "un"), chi.URLParam(r, "permlink")
	canonical := s.opts.Origin + assets.PagePath(author, permlink)

	if s.opts.EnforceSubdomain && !onAuthorSubdomain(hostname(r.Host), author) {
		http.Redirect(w, r, canonical, http.StatusFound)
		return
	}

	art, err := s.pipeline.DApp(r.Context(), author, permlink)
	if err != nil {
		s.logger.Debug("dApp unavailable, redirecting",
			zap.String("author", author), zap.String("permlink", permlink), zap.Error(err))
		http.Redirect(w, r, canonical, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	_, _ = w.Write(art.Body)
}

// StatusFor maps pipeline errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotSupported):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logError(r *http.Request, status int, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		s.logger.Error("render failed", fields...)
		return
	}
	s.logger.Warn("render rejected", fields...)
}

// requestContext derives the protocol and host used for absolute URLs.
func (s *Server) requestContext(r *http.Request) core.RequestContext {
	protocol := "http"
	if r.TLS != nil {
		protocol = "https"
	}
	if s.opts.TrustProxy {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			protocol = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		}
	}
	return core.RequestContext{
		Protocol: protocol,
		Host:     hostname(r.Host),
		RouteTag: chi.URLParam(r, "tag"),
	}
}

// hostname strips the port from a Host header value.
func hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

// onAuthorSubdomain reports whether the first DNS label of host is the
// author's name with dots written as "--".
func onAuthorSubdomain(host, author string) bool {
	label, _, _ := strings.Cut(host, ".")
	return label == strings.ReplaceAll(author, ".", "--")
}
