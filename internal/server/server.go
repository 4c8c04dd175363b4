package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openmined/scriptsync/internal/server/scripts"
	"github.com/openmined/scriptsync/internal/utils"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	config *Config
	server *http.Server
	index  *scripts.ScriptIndex
}

func New(config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	index, err := scripts.NewScriptIndex(config.Scripts)
	if err != nil {
		return nil, err
	}

	handler, err := SetupRoutes(config, index)
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	return &Server{
		config: config,
		index:  index,
		server: &http.Server{
			Addr:              config.Http.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("scriptsync server start", "root", s.config.Scripts.RootDir, "include", s.config.Scripts.Include)
	defer slog.Info("scriptsync server stop")

	if err := utils.EnsureDir(s.config.Scripts.RootDir); err != nil {
		return fmt.Errorf("failed to create root dir: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := s.runHttpServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		slog.Info("http server stopped")
		return nil
	})

	if s.config.Scripts.Watch {
		eg.Go(func() error {
			if err := s.index.Watch(egCtx); err != nil {
				// serving still works without a watcher, every request rescans
				slog.Warn("scripts watcher unavailable", "error", err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("scriptsync server failure", "error", err)
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) runHttpServer() error {
	if s.config.Http.TLS() {
		slog.Info("server start tls", "addr", s.config.Http.Addr, "cert", s.config.Http.CertFile, "key", s.config.Http.KeyFile)
		return s.server.ListenAndServeTLS(s.config.Http.CertFile, s.config.Http.KeyFile)
	}
	slog.Info("server start http", "addr", s.config.Http.Addr)
	return s.server.ListenAndServe()
}
