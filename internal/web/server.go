// Package web is the server-rendered front end: routes, sessions and views.
package web

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/op/go-logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var log = logging.MustGetLogger("web")

// Querier is the slice of *db.DB the handlers use.
type Querier interface {
	Select(ctx context.Context, dest any, statement string, args ...any) error
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	DB   Querier
	Pool Pinger

	// Development shows error details to clients.
	Development   bool
	SessionName   string
	SessionSecret []byte
}

// Server routes requests to the page handlers.
type Server struct {
	db          Querier
	pool        Pinger
	development bool
	sessions    *SessionStore
	views       *views
	router      *httprouter.Router
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.DB == nil {
		return nil, errors.New("web: no database")
	}
	secret := opts.SessionSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		log.Warning("no session secret configured, sessions will not survive a restart")
	}
	name := opts.SessionName
	if name == "" {
		name = "webui.sid"
	}
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	s := &Server{
		db:          opts.DB,
		pool:        opts.Pool,
		development: opts.Development,
		sessions:    NewSessionStore(name, secret),
		views:       v,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *httprouter.Router {
	r := httprouter.New()
	page := func(h Handler) httprouter.Handle {
		return base(Chain(h, withRequestLog, s.withRecovery, s.withSession))
	}
	r.GET("/", page(s.home))
	r.GET("/calendar", page(s.calendar))
	r.GET("/healthz", base(Chain(s.healthz, s.withRecovery)))

	public, err := fs.Sub(assets, "public")
	if err != nil {
		panic(err)
	}
	r.ServeFiles("/public/*filepath", http.FS(public))
	return r
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "webui")
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.Infof("server listening on %s", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
