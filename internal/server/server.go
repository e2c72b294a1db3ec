// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/exporter-toolkit/web"

	"github.com/capbench/capbench/internal/service"
)

// APIService is the HTTP server other services register their endpoints with
type APIService interface {
	service.Service
	Register(pattern, summary, description string, handler http.Handler) error
}

type endpoint struct {
	Pattern     string
	Path        string
	Summary     string
	Description string
}

// APIServer serves the agent API, metrics and debug endpoints
type APIServer struct {
	logger    *slog.Logger
	server    *http.Server
	mux       *http.ServeMux
	webConfig *web.FlagConfig

	mu        sync.Mutex
	endpoints []endpoint
}

var (
	_ APIService         = (*APIServer)(nil)
	_ service.Runner     = (*APIServer)(nil)
	_ service.Shutdowner = (*APIServer)(nil)
)

type Opts struct {
	logger    *slog.Logger
	webConfig *web.FlagConfig
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the APIServer
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithListen sets the listening addresses and the exporter-toolkit web config file
func WithListen(addr []string, webConfigFile string) OptionFn {
	return func(o *Opts) {
		o.webConfig = &web.FlagConfig{
			WebListenAddresses: &addr,
			WebConfigFile:      &webConfigFile,
		}
	}
}

// DefaultOpts returns the default options
func DefaultOpts() Opts {
	noTLS := ""
	return Opts{
		logger: slog.Default(),
		webConfig: &web.FlagConfig{
			WebListenAddresses: &[]string{":8000"},
			WebConfigFile:      &noTLS,
		},
	}
}

// NewAPIServer creates a new APIServer; endpoints are served once Run is called
func NewAPIServer(applyOpts ...OptionFn) *APIServer {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	mux := http.NewServeMux()
	s := &APIServer{
		logger: opts.logger.With("service", "api-server"),
		mux:    mux,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		webConfig: opts.webConfig,
	}
	mux.HandleFunc("GET /{$}", s.landingPage)
	return s
}

func (s *APIServer) Name() string {
	return "api-server"
}

// Handler returns the handler serving every registered endpoint
func (s *APIServer) Handler() http.Handler {
	return s.mux
}

var landing = template.Must(template.New("landing").Parse(`<html>
<head><title>capbench</title></head>
<body>
<h1>capbench</h1>
<p>Available endpoints:</p>
<ul>
{{- range . }}
	<li><a href="{{ .Path }}">{{ .Summary }}</a> <code>{{ .Pattern }}</code> {{ .Description }}</li>
{{- end }}
</ul>
</body>
</html>
`))

func (s *APIServer) landingPage(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	endpoints := append([]endpoint(nil), s.endpoints...)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := landing.Execute(w, endpoints); err != nil {
		s.logger.Error("failed to write landing page", "error", err)
	}
}

func (s *APIServer) Run(ctx context.Context) error {
	s.logger.Info("listening", "addresses", *s.webConfig.WebListenAddresses)
	errCh := make(chan error, 1)
	go func() {
		errCh <- web.ListenAndServe(s.server, s.webConfig, s.logger)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		s.logger.Error("server returned an error", "error", err)
		return err
	}
}

func (s *APIServer) Shutdown() error {
	// NOTE: in-flight test runs are abandoned after 5 seconds
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Register serves handler at pattern, a net/http ServeMux pattern
// optionally prefixed by a method, eg: "POST /api/run_test"
func (s *APIServer) Register(pattern, summary, description string, handler http.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.endpoints {
		if e.Pattern == pattern {
			return fmt.Errorf("endpoint %q already registered", pattern)
		}
	}

	path := pattern
	if _, p, ok := strings.Cut(pattern, " "); ok {
		path = p
	}
	s.mux.Handle(pattern, handler)
	s.endpoints = append(s.endpoints, endpoint{
		Pattern:     pattern,
		Path:        path,
		Summary:     summary,
		Description: description,
	})
	s.logger.Debug("endpoint registered", "pattern", pattern)
	return nil
}
