package server

import (
	"context"
	"net/http"
)

// listener is the serve/drain surface of an HTTP endpoint. The API server
// and the optional metrics endpoint both satisfy it, and tests swap in
// fakes without binding ports.
type listener interface {
	ListenAndServe() error
	Shutdown(context.Context) error
	Addr() string
	Handler() http.Handler
}

type netListener struct {
	srv *http.Server
}

// newNetListener wraps a net/http server with the service timeout profile.
func newNetListener(addr string, handler http.Handler) netListener {
	return netListener{srv: &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}}
}

func (l netListener) ListenAndServe() error              { return l.srv.ListenAndServe() }
func (l netListener) Shutdown(ctx context.Context) error { return l.srv.Shutdown(ctx) }
func (l netListener) Addr() string                       { return l.srv.Addr }
func (l netListener) Handler() http.Handler              { return l.srv.Handler }
