package http

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/domain"
	"flagguess/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// Options wires the handler's collaborators.
type Options struct {
	Auth        *app.AuthService
	Game        *app.GameService
	Sessions    *app.SessionGateway
	Leaderboard *app.LeaderboardService
	Metrics     *metrics.Metrics
	Log         logrus.FieldLogger
	Cookie      CookieConfig
	// StaticDir holds flag images served under /flags/. Empty disables it.
	StaticDir string
}

// Handler serves the web game.
type Handler struct {
	auth        *app.AuthService
	game        *app.GameService
	sessions    *app.SessionGateway
	leaderboard *app.LeaderboardService
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
	cookie      CookieConfig
	staticDir   string
	tmpl        *template.Template
	upgrader    websocket.Upgrader
}

func NewHandler(opts Options) (*Handler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"flagURL": flagURL,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = "flagguess_session"
	}
	return &Handler{
		auth:        opts.Auth,
		game:        opts.Game,
		sessions:    opts.Sessions,
		leaderboard: opts.Leaderboard,
		metrics:     opts.Metrics,
		log:         opts.Log,
		cookie:      opts.Cookie,
		staticDir:   opts.StaticDir,
		tmpl:        tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := httprouter.New()
	// Wrong-method requests are unmatched routes too.
	r.HandleMethodNotAllowed = false

	h.route(r, http.MethodGet, "/", h.loginPage)
	h.route(r, http.MethodGet, "/register", h.registerPage)
	h.route(r, http.MethodPost, "/registration", h.register)
	h.route(r, http.MethodPost, "/login", h.login)
	h.route(r, http.MethodPost, "/submit", h.withSession(h.submit))
	h.route(r, http.MethodGet, "/leaderboard", h.withSession(h.leaderboardPage))
	h.route(r, http.MethodGet, "/flagguess", h.withSession(h.startGame))
	h.route(r, http.MethodGet, "/logout", h.logout)
	h.route(r, http.MethodGet, "/ws/leaderboard", h.withSession(h.serveLeaderboardWS))
	h.route(r, http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		metricsHandler := h.metrics.Handler()
		h.route(r, http.MethodGet, "/metrics", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
			metricsHandler.ServeHTTP(w, req)
		})
	}
	assets, _ := fs.Sub(staticFS, "static")
	assetServer := http.StripPrefix("/static", http.FileServer(http.FS(assets)))
	h.route(r, http.MethodGet, "/static/*filepath", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		assetServer.ServeHTTP(w, req)
	})
	if h.staticDir != "" {
		files := http.StripPrefix("/flags", http.FileServer(http.Dir(h.staticDir)))
		h.route(r, http.MethodGet, "/flags/*filepath", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			files.ServeHTTP(w, req)
		})
	}

	notFound := h.observe("not_found", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		h.renderError(w, req, http.StatusNotFound, "Not found", "The page you requested does not exist.")
	})
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		notFound(w, req, nil)
	})
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		h.log.WithFields(logrus.Fields{"path": req.URL.Path, "panic": v}).Error("handler panicked")
		h.renderError(w, req, http.StatusInternalServerError, "Server error", "Something went wrong. Please try again.")
	}
	return r
}

func (h *Handler) route(r *httprouter.Router, method, path string, handle httprouter.Handle) {
	r.Handle(method, path, h.observe(path, handle))
}

// observe wraps handle with security headers, request logging and metrics.
// route is the registered pattern so metric labels stay bounded.
func (h *Handler) observe(route string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		securityHeaders(rec.Header(), h.cookie.Secure)

		if h.metrics != nil {
			h.metrics.RequestsInFlight.Inc()
			defer h.metrics.RequestsInFlight.Dec()
		}

		next(rec, r, p)

		elapsed := time.Since(start)
		status := rec.Status()
		if h.metrics != nil {
			h.metrics.ObserveRequest(route, status, elapsed)
		}
		h.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   status,
			"duration": elapsed.Round(time.Microsecond).String(),
			"remote":   realIP(r),
		}).Info("request")
	}
}

type sessionHandle func(w http.ResponseWriter, r *http.Request, p httprouter.Params, session domain.Session)

// withSession resolves the session cookie. Requests without a live session
// are sent to the login page.
func (h *Handler) withSession(next sessionHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		session, err := h.sessions.Lookup(r.Context(), h.sessionID(r))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.setSessionCookie(w, session.ID)
		next(w, r, p, session)
	}
}

func (h *Handler) sessionID(r *http.Request) string {
	c, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

// setSessionCookie (re)issues the cookie so its expiry slides with activity.
func (h *Handler) setSessionCookie(w http.ResponseWriter, id string) {
	ttl := h.sessions.TTL()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}

// fail converts an error into a response. Details stay in the log.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionMissing):
		h.clearSessionCookie(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, domain.ErrNoCurrentQuestion):
		http.Redirect(w, r, "/flagguess", http.StatusSeeOther)
	case errors.Is(err, domain.ErrEmptyPool):
		h.log.WithField("path", r.URL.Path).Warn("no flags configured")
		h.renderError(w, r, http.StatusServiceUnavailable, "No flags available",
			"There are no flags to guess right now. Please try again later.")
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		h.renderError(w, r, http.StatusInternalServerError, "Server error", "Something went wrong. Please try again.")
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(errorPayload{Message: message})
		return
	}
	h.render(w, status, "error", errorPage{Title: title, Message: message})
}

// render executes a template into a buffer so a failing template never
// leaves a half-written page.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.WithError(err).WithField("template", name).Error("render failed")
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func flagURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "/") {
		return ref
	}
	return "/flags/" + ref
}

func securityHeaders(hdr http.Header, https bool) {
	hdr.Set("Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:; img-src 'self' https:")
	hdr.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("X-Frame-Options", "DENY")
	if https {
		hdr.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
}

func realIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder remembers the response status. It passes Hijack through so
// websocket upgrades keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
