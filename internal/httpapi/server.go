package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
	apimw "github.com/hamed0406/uptimewatch/internal/httpapi/middleware"
	"github.com/hamed0406/uptimewatch/internal/monitor"
)

// Checks runs probes on demand.
type Checks interface {
	CheckNow(ctx context.Context) ([]domain.CheckResult, error)
	AddService(ctx context.Context, spec domain.ServiceSpec) (domain.CheckResult, error)
}

type Server struct {
	Logger  *zap.Logger
	Monitor *monitor.Monitor
	Checks  Checks
	// Live serves the websocket stream; nil disables /api/ws.
	Live http.HandlerFunc
}

func NewServer(l *zap.Logger, m *monitor.Monitor, c Checks, live http.HandlerFunc) *Server {
	return &Server{Logger: l, Monitor: m, Checks: c, Live: live}
}

// Router builds the HTTP handler. Reads need a public or admin key, writes an
// admin key; each class has its own per-IP rate limit.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.Logger(s.Logger))
	r.Use(chimw.Recoverer)

	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(pubRPM, pubBurst))
			r.Use(apimw.RequireAny(keys))
			r.Get("/status", s.handleStatus)
			r.Get("/services", s.handleListServices)
			r.Get("/services/{name}/history", s.handleHistory)
			if s.Live != nil {
				r.Get("/ws", s.Live)
			}
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(admRPM, admBurst))
			r.Use(apimw.RequireAdmin(keys))
			r.Post("/check", s.handleCheckNow)
			r.Post("/services", s.handleAddService)
			r.Delete("/services/{name}", s.handleRemoveService)
			r.Get("/notifications", s.handleGetNotifications)
			r.Put("/notifications", s.handlePutNotifications)
			r.Post("/notifications/{channel}/test", s.handleTestChannel)
		})
	})
	return r
}

// ---- rendering ----

type statusView struct {
	Name           string        `json:"name"`
	URL            string        `json:"url"`
	Status         domain.Status `json:"status"`
	StatusCode     *int          `json:"statusCode"`
	ResponseTimeMs *int64        `json:"responseTime"`
	Timestamp      *time.Time    `json:"timestamp"`
	Error          string        `json:"error,omitempty"`
	Uptime         string        `json:"uptime"`
}

func newStatusView(st monitor.ServiceStatus) statusView {
	v := statusView{
		Name:   st.Spec.Name,
		URL:    st.Spec.URL,
		Status: domain.StatusUnknown,
		Uptime: domain.FormatUptime(st.Uptime),
	}
	if c := st.Current; c != nil {
		rt, ts := c.ResponseTimeMs, c.ObservedAt
		v.Status = c.Status
		v.StatusCode = c.StatusCode
		v.ResponseTimeMs = &rt
		v.Timestamp = &ts
		v.Error = c.Error
	}
	return v
}

type historyView struct {
	Name    string                `json:"name"`
	Uptime  string                `json:"uptime"`
	History []domain.HistoryEntry `json:"history"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps monitor errors to status codes; anything unrecognised is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, monitor.ErrInvalidService),
		errors.Is(err, monitor.ErrDuplicateService),
		errors.Is(err, monitor.ErrUnknownChannel),
		errors.Is(err, monitor.ErrChannelNotConfigured):
		code = http.StatusBadRequest
	case errors.Is(err, monitor.ErrServiceNotFound):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		s.Logger.Error("api_error", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// ---- handlers ----

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sts := s.Monitor.Statuses()
	out := make([]statusView, 0, len(sts))
	for _, st := range sts {
		out = append(out, newStatusView(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Monitor.Services())
}

func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	results, err := s.Checks.CheckNow(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checked": len(results), "results": results})
}

func (s *Server) handleAddService(w http.ResponseWriter, r *http.Request) {
	var spec domain.ServiceSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad payload"})
		return
	}
	res, err := s.Checks.AddService(r.Context(), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Logger.Info("added_service",
		zap.String("service", res.Name),
		zap.String("status", string(res.Status)),
		zap.Int64("response_ms", res.ResponseTimeMs),
	)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleRemoveService(w http.ResponseWriter, r *http.Request) {
	if err := s.Monitor.RemoveService(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.Monitor.History(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyView{Name: h.Name, Uptime: domain.FormatUptime(h.Uptime), History: h.Entries})
}

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Monitor.NotificationConfig())
}

func (s *Server) handlePutNotifications(w http.ResponseWriter, r *http.Request) {
	var cfg domain.NotificationConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad payload"})
		return
	}
	masked, err := s.Monitor.UpdateNotificationConfig(r.Context(), cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, masked)
}

func (s *Server) handleTestChannel(w http.ResponseWriter, r *http.Request) {
	ch := chi.URLParam(r, "channel")
	if err := s.Monitor.TestChannel(r.Context(), ch); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"channel": ch, "result": "sent"})
}
