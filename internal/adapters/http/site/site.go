// Package site serves the server-rendered transfer-function dashboard.
package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/malcong/controle/internal/adapters/render"
	"github.com/malcong/controle/internal/adapters/session"
	"github.com/malcong/controle/internal/app"
	"github.com/malcong/controle/internal/domain/chartdata"
	"github.com/malcong/controle/internal/domain/types"
	"github.com/malcong/controle/pkg/logger"
	"github.com/malcong/controle/pkg/metrics"
)

// Sessions is the per-visitor controller store.
type Sessions interface {
	Acquire(ctx context.Context, id string) (string, *app.Controller, bool)
	Get(id string) (*app.Controller, bool)
}

// Handler serves the dashboard pages and chart images.
type Handler struct {
	sessions Sessions
	renderer *render.Renderer
	log      logger.Logger

	appName        string
	analyticsToken string
	hashRoute      bool
	timePoints     int
	timeEnd        float64
	secureCookie   bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithAppName sets the name shown in the title and header.
func WithAppName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.appName = name
		}
	}
}

// WithAnalyticsToken renders token into the page for the analytics snippet.
func WithAnalyticsToken(token string) Option {
	return func(h *Handler) {
		h.analyticsToken = token
	}
}

// WithHashRoute makes share links use the #/?query form.
func WithHashRoute(enabled bool) Option {
	return func(h *Handler) {
		h.hashRoute = enabled
	}
}

// WithDefaults sets the simulation parameters shown as form placeholders.
func WithDefaults(timePoints int, timeEnd float64) Option {
	return func(h *Handler) {
		if timePoints > 0 {
			h.timePoints = timePoints
		}
		if timeEnd > 0 {
			h.timeEnd = timeEnd
		}
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(h *Handler) {
		h.secureCookie = secure
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// New creates a dashboard Handler.
func New(sessions Sessions, renderer *render.Renderer, opts ...Option) *Handler {
	h := &Handler{
		sessions:   sessions,
		renderer:   renderer,
		log:        logger.Nop(),
		appName:    "Control Systems",
		timePoints: 40,
		timeEnd:    3.0,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches the dashboard routes to mux. API routes registered on
// the same mux take precedence over "/" by specificity.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(FS())))
	mux.HandleFunc("/charts/", h.HandleChart)
	mux.HandleFunc("/analyze", h.HandleAnalyze)
	mux.HandleFunc("/dismiss", h.HandleDismiss)
	mux.HandleFunc("/", h.HandleRoot)
}

// HandleRoot handles GET / and auto-submits when the URL carries a system.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	ctrl := h.controller(w, r)

	v, submitted, err := ctrl.LoadFromQuery(r.Context(), r.URL.Query())
	notice := ""
	if submitted {
		v, notice = h.settle(r, ctrl, v, err)
	}
	h.render(w, r, v, notice)
}

// HandleAnalyze handles POST /analyze form submissions.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	ctrl := h.controller(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := app.Input{
		Numerator:   r.PostForm.Get(app.ParamNumerator),
		Denominator: r.PostForm.Get(app.ParamDenominator),
		TimePoints:  strings.TrimSpace(r.PostForm.Get(app.ParamTimePoints)),
		TimeEnd:     strings.TrimSpace(r.PostForm.Get(app.ParamTimeEnd)),
	}
	v, err := ctrl.Submit(r.Context(), in)
	v, notice := h.settle(r, ctrl, v, err)
	if notice != "" {
		v.Input = in
	}
	h.render(w, r, v, notice)
}

// HandleDismiss handles POST /dismiss and returns to the dashboard.
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if ctrl, ok := h.existing(r); ok {
		ctrl.Dismiss()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleChart handles GET /charts/{kind}.svg for the caller's session.
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	name, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/charts/"), ".svg")
	if !ok {
		http.NotFound(w, r)
		return
	}
	kind, ok := chartdata.ParseKind(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ctrl, ok := h.existing(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := ctrl.View().Charts.Get(kind)

	start := time.Now()
	var buf bytes.Buffer
	if err := h.renderer.SVG(&buf, chartTitles[kind], data); err != nil {
		if errors.Is(err, render.ErrEmptyChart) {
			http.NotFound(w, r)
			return
		}
		metrics.RecordChartRenderError(string(kind))
		h.log.Error(r.Context(), "chart render failed", logger.String("kind", string(kind)), logger.Error(err))
		http.Error(w, "chart render failed", http.StatusInternalServerError)
		return
	}
	metrics.RecordChartRendered(string(kind), float64(time.Since(start).Microseconds())/1000)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(buf.Bytes())
}

// settle maps a submission outcome to the view to show. Most failures are
// already reflected in the controller state; a rejection that left the state
// untouched comes back as a notice.
func (h *Handler) settle(r *http.Request, ctrl *app.Controller, v app.View, err error) (app.View, string) {
	switch {
	case err == nil:
		return v, ""
	case errors.Is(err, app.ErrSuperseded), errors.Is(err, context.Canceled):
		return ctrl.View(), ""
	case v.State != app.StateError:
		return v, types.Message(err)
	default:
		h.log.Debug(r.Context(), "submission failed", logger.Error(err))
		return v, ""
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, v app.View, notice string) {
	p := h.page(r, v)
	p.Notice = notice

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		h.log.Error(r.Context(), "page render failed", logger.Error(errors.Join(ErrRender, err)))
		http.Error(w, "page render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// controller returns the caller's controller, issuing a session cookie for
// new visitors.
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) *app.Controller {
	var id string
	if c, err := r.Cookie(session.CookieName); err == nil {
		id = c.Value
	}
	sid, ctrl, created := h.sessions.Acquire(r.Context(), id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     session.CookieName,
			Value:    sid,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return ctrl
}

func (h *Handler) existing(r *http.Request) (*app.Controller, bool) {
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return nil, false
	}
	return h.sessions.Get(c.Value)
}
