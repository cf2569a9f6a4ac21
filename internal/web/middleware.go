package web

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// Handler is httprouter.Handle with a context parameter.
type Handler func(context.Context, http.ResponseWriter, *http.Request, httprouter.Params)

// Middleware wraps a handler with additional logic.
type Middleware func(Handler) Handler

// Chain applies mw around h. The first middleware runs first.
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// base starts the chain from the request's own context. Its return value
// plugs into httprouter directly.
func base(h Handler) httprouter.Handle {
	return func(rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
		h(r.Context(), rw, r, p)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog logs method, path, status and latency of every request.
func withRequestLog(h Handler) Handler {
	return func(c context.Context, rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
		h(c, rec, r, p)
		log.Infof("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	}
}

// withRecovery turns a panicking handler into a 500.
func (s *Server) withRecovery(h Handler) Handler {
	return func(c context.Context, rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
		defer func() {
			if v := recover(); v != nil {
				log.Errorf("panic serving %s: %v", r.URL.Path, v)
				http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		h(c, rw, r, p)
	}
}

// withSession loads the cookie session into the context.
func (s *Server) withSession(h Handler) Handler {
	return func(c context.Context, rw http.ResponseWriter, r *http.Request, p httprouter.Params) {
		h(contextWithSession(c, s.sessions.Load(r)), rw, r, p)
	}
}
