package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AJFrio/NodeNav-sub000/bluetooth"
	"github.com/AJFrio/NodeNav-sub000/lights"
	"github.com/AJFrio/NodeNav-sub000/utils"
)

// Server holds the dependencies for the HTTP facade.
type Server struct {
	btManager *bluetooth.Manager
	wsHub     *utils.WebSocketHub
	lights    *lights.Registry
	router    *http.ServeMux
	addr      string
}

// NewServer creates a new Server instance.
func NewServer(addr string, btManager *bluetooth.Manager, wsHub *utils.WebSocketHub, lightRegistry *lights.Registry) *Server {
	s := &Server{
		btManager: btManager,
		wsHub:     wsHub,
		lights:    lightRegistry,
		router:    http.NewServeMux(),
		addr:      addr,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	go func() {
		log.Printf("HTTP: listening on %s", s.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP: could not start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("HTTP: shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP: shutdown failed: %v", err)
	}
}
