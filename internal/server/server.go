package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"cipherkeep/internal/directory"
	"cipherkeep/internal/envelope"
	"cipherkeep/internal/failure"
)

const minSecretLen = 32

// Server is the key directory HTTP server.
type Server struct {
	cfg    Config
	store  directory.Store
	alloc  *directory.Allocator
	tokens *tokenIssuer
	log    *slog.Logger
	engine *gin.Engine

	rlBundles *multiLimiter
	// dummyHash keeps login timing alike for unknown usernames.
	dummyHash string
}

// New builds a Server over store.
func New(cfg Config, store directory.Store, log *slog.Logger) (*Server, error) {
	cfg.setDefaults()
	if len(cfg.JWTSecret) < minSecretLen {
		return nil, errors.New("server: jwt secret must be at least 32 bytes")
	}
	if store == nil {
		return nil, errors.New("server: store required")
	}
	if log == nil {
		log = slog.Default()
	}
	dummy, err := hashDummyVerifier()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		store:     store,
		alloc:     directory.NewAllocator(store, cfg.LowWater, log),
		tokens:    newTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL),
		log:       log,
		rlBundles: newMultiLimiter(rate.Limit(cfg.BundleRate), cfg.BundleBurst, 10*time.Minute),
		dummyHash: dummy,
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * s.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("key directory listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		}
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.DebugContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// fakeSalt is the salt reported for unknown usernames. It is stable per
// username so lookups do not reveal which accounts exist.
func (s *Server) fakeSalt(username string) []byte {
	mac := hmac.New(sha256.New, []byte(s.cfg.JWTSecret))
	mac.Write([]byte("salt|"))
	mac.Write([]byte(username))
	return mac.Sum(nil)[:16]
}

func hashDummyVerifier() (string, error) {
	h, err := envelope.HashVerifier(make([]byte, 32))
	if err != nil {
		return "", failure.Internal("hash dummy verifier", err)
	}
	return h, nil
}
