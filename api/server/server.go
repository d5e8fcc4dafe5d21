// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
)

const baseURL = "/ext"

var (
	_ Server = (*server)(nil)

	errUnknownEndpoint = errors.New("unknown endpoint")
	errAlreadyRouted   = errors.New("route already registered")
)

type PathAdder interface {
	// AddRoute registers a route to a handler.
	AddRoute(handler http.Handler, base, endpoint string) error

	// AddAliases registers aliases to the server
	AddAliases(endpoint string, aliases ...string) error
}

// Server maintains the HTTP router
type Server interface {
	PathAdder
	// Dispatch starts the API server
	Dispatch() error
	// Shutdown this server
	Shutdown() error
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `json:"readTimeout"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout"`
}

type server struct {
	// log this server writes to
	log log.Logger

	shutdownTimeout time.Duration

	metrics *serverMetrics

	// lock is held for writing while routes change and for reading while a
	// request is routed.
	lock   sync.RWMutex
	router *mux.Router
	routes map[string]http.Handler

	srv *http.Server

	// Listener used to serve traffic
	listener net.Listener
}

// New returns an instance of a Server.
func New(
	log log.Logger,
	listener net.Listener,
	allowedOrigins []string,
	shutdownTimeout time.Duration,
	registerer prometheus.Registerer,
	httpConfig HTTPConfig,
	allowedHosts []string,
) (Server, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}

	s := &server{
		log:             log,
		shutdownTimeout: shutdownTimeout,
		metrics:         m,
		router:          mux.NewRouter(),
		routes:          make(map[string]http.Handler),
		listener:        listener,
	}
	s.srv = &http.Server{
		Handler:           wrapHandler(http.HandlerFunc(s.serveHTTP), allowedOrigins, allowedHosts),
		ReadTimeout:       httpConfig.ReadTimeout,
		ReadHeaderTimeout: httpConfig.ReadHeaderTimeout,
		WriteTimeout:      httpConfig.WriteTimeout,
		IdleTimeout:       httpConfig.IdleTimeout,
	}

	log.Info("API created with allowed origins: " + strings.Join(allowedOrigins, ","))
	return s, nil
}

func (s *server) Dispatch() error {
	s.log.Info("HTTP API server listening",
		log.Stringer("address", s.listener.Addr()),
	)
	err := s.srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	s.router.ServeHTTP(w, r)
}

func (s *server) AddRoute(handler http.Handler, base, endpoint string) error {
	url := fmt.Sprintf("%s/%s%s", baseURL, base, endpoint)
	s.log.Info("adding route",
		log.String("url", url),
	)

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.addRoute(url, s.metrics.wrapHandler(base, handler))
}

func (s *server) addRoute(url string, handler http.Handler) error {
	if _, exists := s.routes[url]; exists {
		return fmt.Errorf("%w: %s", errAlreadyRouted, url)
	}
	s.routes[url] = handler
	s.router.Handle(url, handler)
	return nil
}

func (s *server) AddAliases(endpoint string, aliases ...string) error {
	url := fmt.Sprintf("%s/%s", baseURL, endpoint)

	s.lock.Lock()
	defer s.lock.Unlock()

	handler, ok := s.routes[url]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownEndpoint, url)
	}
	for _, alias := range aliases {
		if err := s.addRoute(fmt.Sprintf("%s/%s", baseURL, alias), handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	err := s.srv.Shutdown(ctx)
	cancel()

	// If shutdown times out, make sure the server is still shutdown.
	_ = s.srv.Close()
	return err
}

func wrapHandler(
	handler http.Handler,
	allowedOrigins []string,
	allowedHosts []string,
) http.Handler {
	h := filterInvalidHosts(handler, allowedHosts)
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
	}).Handler(h)
}
