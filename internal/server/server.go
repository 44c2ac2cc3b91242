// Package server exposes the relay pipeline as a webhook.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/mailrelay/internal/common"
	"github.com/loykin/mailrelay/internal/payload"
	"github.com/loykin/mailrelay/internal/relay"
)

// maxBodyBytes caps inbound event bodies.
const maxBodyBytes = 4 << 20

// Processor runs one inbound event.
type Processor interface {
	Process(ctx context.Context, raw []byte) (*relay.Result, error)
}

// Server routes POST <path> to a Processor.
type Server struct {
	mu     sync.RWMutex
	proc   Processor
	path   string
	engine *gin.Engine
}

// New builds the gin engine. path defaults to /events.
func New(proc Processor, path string) *Server {
	if path == "" {
		path = "/events"
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{proc: proc, path: path, engine: gin.New()}
	s.engine.Use(gin.Recovery())
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	s.engine.POST(path, s.handleEvent)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// SetProcessor swaps the processor, e.g. after a config reload.
func (s *Server) SetProcessor(p Processor) {
	s.mu.Lock()
	s.proc = p
	s.mu.Unlock()
}

func (s *Server) processor() Processor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proc
}

func (s *Server) handleEvent(c *gin.Context) {
	logger := common.GetLogger().WithComponent("server")
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.processor().Process(c.Request.Context(), raw)
	switch {
	case errors.Is(err, payload.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil && res != nil:
		logger.Warn("event not relayed", "event_id", res.EventID, "run_id", res.RunID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"run_id": res.RunID, "event_id": res.EventID, "status": res.Status, "status_code": res.StatusCode, "error": err.Error()})
	case err != nil:
		logger.Error("event processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case res.Skipped():
		reason := ""
		if res.Reason != nil {
			reason = res.Reason.Error()
		}
		c.JSON(http.StatusOK, gin.H{"run_id": res.RunID, "event_id": res.EventID, "status": res.Status, "reason": reason})
	default:
		c.JSON(http.StatusAccepted, gin.H{"run_id": res.RunID, "event_id": res.EventID, "status": res.Status, "fields": res.Fields})
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		common.GetLogger().WithComponent("server").Info("listening", "addr", addr, "path", s.path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
