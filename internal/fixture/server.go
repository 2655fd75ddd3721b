// Package fixture serves a minimal to-do page with the same form and
// control names as the application under test, so drivers can be exercised
// without the real front end.
package fixture

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexHTML []byte

// Router returns the gin engine serving the fixture page.
func Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// Server is a running fixture server.
type Server struct {
	URL    string
	srv    *http.Server
	logger *log.Logger
}

// Start listens on addr (use "127.0.0.1:0" for a random port) and serves the fixture.
func Start(addr string, logger *log.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	s := &Server{
		URL:    "http://" + ln.Addr().String(),
		srv:    &http.Server{Handler: Router(), ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("[FIXTURE] server stopped: %v", err)
		}
	}()
	logger.Printf("[FIXTURE] serving todo page on %s", s.URL)
	return s, nil
}

// Close shuts the server down.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
