package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const listCalendarSQL = `SELECT id, title, starts_at, location FROM calendar_entries ORDER BY starts_at`

// CalendarEntry is one row of calendar_entries.
type CalendarEntry struct {
	ID       int64     `db:"id"`
	Title    string    `db:"title"`
	StartsAt time.Time `db:"starts_at"`
	Location *string   `db:"location"`
}

func (s *Server) home(c context.Context, rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess := SessionFrom(c)
	sess.Visits++
	if err := s.sessions.Save(rw, sess); err != nil {
		s.fail(rw, r, err)
		return
	}
	s.render(rw, r, "home", map[string]any{
		"Title":   "Home",
		"Visits":  sess.Visits,
		"Session": sess.ID,
	})
}

func (s *Server) calendar(c context.Context, rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var entries []CalendarEntry
	if err := s.db.Select(c, &entries, listCalendarSQL); err != nil {
		s.fail(rw, r, err)
		return
	}
	s.render(rw, r, "calendar", map[string]any{
		"Title":   "Calendar",
		"Entries": entries,
	})
}

func (s *Server) healthz(c context.Context, rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.pool != nil {
		if err := s.pool.Ping(c); err != nil {
			log.Warningf("health check: %v", err)
			http.Error(rw, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(rw, "ok\n"); err != nil {
		log.Debugf("write healthz: %v", err)
	}
}

// fail reports err as a 500. Only development builds show the cause.
func (s *Server) fail(rw http.ResponseWriter, r *http.Request, err error) {
	log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	msg := http.StatusText(http.StatusInternalServerError)
	if s.development {
		msg = err.Error()
	}
	http.Error(rw, msg, http.StatusInternalServerError)
}
