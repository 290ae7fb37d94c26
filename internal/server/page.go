package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zasa-35/oura-visualizer/internal/apperr"
	"github.com/zasa-35/oura-visualizer/internal/dashboard"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"segment": func(seg dashboard.Segment) template.CSS {
		return template.CSS("width:" + strconv.FormatFloat(seg.Width, 'f', 2, 64) + "%;background:" + seg.Color)
	},
	"swatch": func(color string) template.CSS { return template.CSS("background:" + color) },
}).ParseFS(templateFS, "templates/dashboard.html"))

type pageData struct {
	dashboard.View
	User    UserInfo
	Saved   string
	Flash   string
	Year    int
	CanSave bool
}

// handlePage renders the dashboard for ?date=, refreshing it first.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day := q.Get("date")
	if day == "" {
		day = s.today()
	}

	c := s.controller()
	if err := c.SetDate(day); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// A failed refresh still renders; the view carries the error.
	if err := c.Refresh(r.Context()); err != nil {
		s.log.Warn("page refresh failed", "date", day, "error", err)
	}

	data := pageData{
		View:    c.View(),
		User:    userInfoFromContext(r),
		Saved:   q.Get("saved"),
		Flash:   q.Get("error"),
		Year:    s.now().In(s.loc).Year(),
		CanSave: s.store != nil,
	}
	if data.Error != "" {
		data.Error = pageError(data.Error)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.log.Error("render dashboard", "error", err)
	}
}

// handlePageSnapshot refreshes the form's date, saves the result and
// redirects back to the page with the outcome.
func (s *Server) handlePageSnapshot(w http.ResponseWriter, r *http.Request) {
	day := r.FormValue("date")
	if day == "" {
		day = s.today()
	}
	back := url.Values{"date": {day}}

	c, err := s.refreshDay(r.Context(), day)
	if err == nil {
		rec, serr := c.SaveSnapshot(r.Context())
		if serr == nil {
			back.Set("saved", rec.ID)
		}
		err = serr
	}
	if err != nil {
		s.log.Warn("page snapshot failed", "date", day, "error", err)
		back.Set("error", snapshotError(err))
	}
	http.Redirect(w, r, "/?"+back.Encode(), http.StatusSeeOther)
}

func pageError(msg string) string {
	return "Could not load sleep data: " + msg
}

func snapshotError(err error) string {
	switch {
	case errors.Is(err, dashboard.ErrNoStore):
		return "Saving is not configured on this server."
	case errors.Is(err, dashboard.ErrNothingToSave):
		return "Nothing to save yet."
	case apperr.Is(err, apperr.Configuration), apperr.Is(err, apperr.Upstream):
		return "Refresh failed: " + apperr.As(err).Message
	default:
		return "Save failed: " + err.Error()
	}
}
