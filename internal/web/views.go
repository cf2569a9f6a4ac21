package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates public
var assets embed.FS

var pages = []string{"home", "calendar"}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string { return t.Format("Mon 2 Jan 2006 15:04") },
}

type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	v := &views{pages: map[string]*template.Template{}}
	for _, p := range pages {
		t, err := template.New("layout.html").Funcs(funcs).
			ParseFS(assets, "templates/layout.html", "templates/"+p+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", p, err)
		}
		v.pages[p] = t
	}
	return v, nil
}

// render executes page into a buffer first so template errors still produce
// a clean 500.
func (s *Server) render(rw http.ResponseWriter, r *http.Request, page string, data any) {
	t, ok := s.views.pages[page]
	if !ok {
		s.fail(rw, r, fmt.Errorf("unknown page %q", page))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.fail(rw, r, fmt.Errorf("render %s: %w", page, err))
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(rw); err != nil {
		log.Debugf("write %s: %v", page, err)
	}
}
