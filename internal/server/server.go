// Package server exposes the arena core over a JSON HTTP API. It is the
// host-side adapter: identity arrives as a header terminated by the
// upstream proxy, and every response is either a structured payload or a
// typed error code.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/arena/internal/announce"
	"github.com/zulandar/arena/internal/matchmaking"
	"gorm.io/gorm"
)

// userHeader carries the authenticated user ID, set by the host's identity
// layer. An absent header means an anonymous caller.
const userHeader = "X-User-ID"

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB   *gorm.DB
	Port int
	Out  io.Writer

	// Matchmaking is the pair-selection policy for GET /api/match.
	Matchmaking matchmaking.Config
	// QuotaMax is the per-fingerprint demo allowance.
	QuotaMax int
	// Announcer publishes vote results; nil disables announcements.
	Announcer *announce.Announcer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, &opts)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Arena API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
