package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/config"
	"github.com/alnah/go-tex2html/internal/posts"
	"github.com/alnah/go-tex2html/internal/server"
)

const shutdownTimeout = 10 * time.Second

// runServe renders posts on request until ctx is cancelled, then drains
// in-flight requests.
func runServe(ctx context.Context, args []string, env *Environment) (*config.Config, error) {
	f, err := parseServeFlags(args)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(f.common, env)
	if err != nil {
		return nil, err
	}
	if f.posts != "" {
		cfg.Posts.Dir = f.posts
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.changed["cache-size"] {
		cfg.Server.CacheSize = f.cacheSize
	}
	if err := applyEngineFlags(cfg, f.engine, f.common); err != nil {
		return cfg, err
	}
	logger := newLogger(env.Stderr, cfg, f.common)

	conv, err := tex2html.NewConverter(converterOptions(cfg, env, logger)...)
	if err != nil {
		return cfg, err
	}
	defer func() { _ = conv.Close() }()

	handler := server.New(conv, posts.NewStore(cfg.Posts.Dir), logger, server.Options{
		Title:     cfg.Site.Title,
		Lang:      cfg.Site.Lang,
		CacheSize: cfg.Server.CacheSize,
	})
	srv := server.HTTPServer(cfg.Server.Addr, handler, cfg.Timeout())

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "posts", cfg.Posts.Dir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("serving on %s: %w", cfg.Server.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return cfg, fmt.Errorf("shutting down: %w", err)
	}
	return cfg, nil
}
