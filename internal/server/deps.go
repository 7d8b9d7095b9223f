package server

import (
	"time"

	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/bookmarks"
	"github.com/nikbrunner/bmsync/internal/logger"
)

// Deps are the shared dependencies of the HTTP handlers.
type Deps struct {
	Logger         logger.Logger
	Bookmarks      bookmarks.Backend
	Verifier       auth.TokenVerifier
	StartTime      time.Time
	Version        string
	RequestTimeout time.Duration
	Ready          func() error // nil means always ready
}
