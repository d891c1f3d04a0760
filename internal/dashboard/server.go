package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Ducpm1301/ga-webcs/internal/broadcast"
	"github.com/Ducpm1301/ga-webcs/internal/session"
	"github.com/Ducpm1301/ga-webcs/internal/store"
)

// Server exposes the dashboard over HTTP.
type Server struct {
	session *session.Manager
	hub     *broadcast.Hub
	store   store.Store
	view    *View
	router  chi.Router
}

// NewServer assembles the router. allowedOrigins scopes browser access;
// empty means same-origin only.
func NewServer(mgr *session.Manager, hub *broadcast.Hub, st store.Store, view *View, allowedOrigins []string) *Server {
	s := &Server{session: mgr, hub: hub, store: st, view: view}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Accept"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/logout", s.handleLogout)
			r.Get("/session", s.handleSession)
			r.Get("/partners", s.handlePartners)
			r.Put("/partners/selected", s.handleSelectPartner)
			r.Get("/stats", s.handleStats)
			r.Get("/stats/export", s.handleExport)
		})
	})

	s.router = r
	return s
}

// Handler returns the assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.session.State().IsAuthenticated {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	err := s.session.Login(r.Context(), req.Email, req.Password)
	if eris.Is(err, session.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		zap.L().Error("login failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Logout(r.Context()); err != nil {
		zap.L().Error("logout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handlePartners(w http.ResponseWriter, r *http.Request) {
	partners, err := s.store.Partners(r.Context())
	if err != nil {
		zap.L().Error("read partners failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "read partners failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"partners": partners,
		"selected": s.hub.Selected(),
	})
}

func (s *Server) handleSelectPartner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartnerID string `json:"partner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PartnerID == "" {
		writeError(w, http.StatusBadRequest, "partner_id is required")
		return
	}

	partners, err := s.store.Partners(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read partners failed")
		return
	}
	known := false
	for _, p := range partners {
		if p.ID == req.PartnerID {
			known = true
			break
		}
	}
	if !known {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown partner %s", req.PartnerID))
		return
	}

	if err := s.hub.Select(r.Context(), req.PartnerID); err != nil {
		zap.L().Error("select partner failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "select partner failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": req.PartnerID})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q, ok := statsQuery(w, r)
	if !ok {
		return
	}
	res, err := s.view.Fetch(r.Context(), q)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, ok := statsQuery(w, r)
	if !ok {
		return
	}
	res, err := s.view.Fetch(r.Context(), q)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	filename := fmt.Sprintf("%s_%s_%s.xlsx", q.Site, q.StartDate, time.Now().UTC().Format("20060102150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := WriteWorkbook(w, res); err != nil {
		zap.L().Error("export failed", zap.Error(err))
	}
}

func statsQuery(w http.ResponseWriter, r *http.Request) (Query, bool) {
	q := Query{
		Site:      r.URL.Query().Get("site"),
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}
	if q.Site == "" || q.StartDate == "" {
		writeError(w, http.StatusBadRequest, "site and start_date are required")
		return Query{}, false
	}
	if raw := r.URL.Query().Get("shift"); raw != "" {
		shift, err := strconv.Atoi(raw)
		if err != nil || shift < 0 {
			writeError(w, http.StatusBadRequest, "shift must be a non-negative integer")
			return Query{}, false
		}
		q.Shift = shift
	}
	return q, true
}

func writeFetchError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, ErrNoPartner):
		writeError(w, http.StatusConflict, "no partner selected")
	case eris.Is(err, ErrStale):
		writeError(w, http.StatusConflict, "superseded by a newer request")
	case strings.Contains(err.Error(), "unknown site"):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("stats fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "stats fetch failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
