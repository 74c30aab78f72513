// Package httpadapter exposes the scan service over HTTP.
//
// Authentication happens upstream: callers are identified by the X-User-ID
// header, a UUID set by the gateway. Scans without it are analyzed anonymously.
package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safeguard/safety-assistant/internal/application"
	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/domain/classifier"
)

// UserHeader carries the authenticated user ID
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// Server serves the scan, history, privacy and risk endpoints
type Server struct {
	scans  *application.ScanService
	models []classifier.Classifier
	logger *zap.Logger
}

// New creates a server. models are reported by the health endpoint.
func New(scans *application.ScanService, logger *zap.Logger, models ...classifier.Classifier) *Server {
	return &Server{
		scans:  scans,
		models: models,
		logger: logger.With(zap.String("component", "http")),
	}
}

// Routes returns a chi.Router with every endpoint mounted
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/scan", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
		r.Post("/feedback", s.feedback)
		r.Get("/history", s.history)
		r.Get("/privacy-settings", s.getPrivacySettings)
		r.Post("/privacy-settings", s.updatePrivacySettings)
	})

	r.Route("/risk", func(r chi.Router) {
		r.Get("/score", s.riskScore)
		r.Get("/score/{userID}", s.userRiskScore)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	models := make(map[string]bool, len(s.models))
	for _, m := range s.models {
		models[string(m.Kind())] = m.Trained()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "models": models})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	userID, err := optionalUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req application.ScanRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Content == "" {
		s.writeError(w, r, &runtimeError{code: http.StatusBadRequest, msg: "content is required"})
		return
	}

	outcome, err := s.scans.Analyze(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type feedbackRequest struct {
	ScanID    uuid.UUID `json:"scan_id"`
	IsCorrect bool      `json:"is_correct"`
	Comment   string    `json:"comment"`
}

func (s *Server) feedback(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req feedbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ScanID == uuid.Nil {
		s.writeError(w, r, &runtimeError{code: http.StatusBadRequest, msg: "scan_id is required"})
		return
	}

	feedback, err := s.scans.SubmitFeedback(r.Context(), userID, req.ScanID, req.IsCorrect, req.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Feedback submitted successfully",
		"feedback_id": feedback.ID,
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, r, &runtimeError{code: http.StatusBadRequest, msg: "limit must be a non-negative integer"})
			return
		}
	}

	records, err := s.scans.History(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) getPrivacySettings(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	settings, err := s.scans.PrivacySettings(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// updatePrivacySettings applies a partial update: omitted fields keep their current value
func (s *Server) updatePrivacySettings(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	settings, err := s.scans.PrivacySettings(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := decodeBody(w, r, &settings); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.scans.UpdatePrivacySettings(r.Context(), userID, settings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Privacy settings updated successfully",
		"settings": updated,
	})
}

func (s *Server) riskScore(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRiskScore(w, r, userID)
}

func (s *Server) userRiskScore(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, &runtimeError{code: http.StatusBadRequest, msg: "user ID must be a UUID"})
		return
	}
	s.writeRiskScore(w, r, userID)
}

func (s *Server) writeRiskScore(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	score, err := s.scans.RiskScore(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// requestLogger logs one line per request with the chi request ID
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func optionalUser(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(UserHeader)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, &runtimeError{code: http.StatusUnauthorized, msg: "invalid " + UserHeader + " header"}
	}
	return id, nil
}

func requiredUser(r *http.Request) (uuid.UUID, error) {
	id, err := optionalUser(r)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, &runtimeError{code: http.StatusUnauthorized, msg: "Authentication required"}
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &runtimeError{code: http.StatusBadRequest, msg: "invalid request body: " + err.Error()}
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rt *runtimeError
	switch {
	case errors.As(err, &rt):
		writeJSON(w, rt.code, errorBody{Detail: rt.msg})
	case errors.Is(err, domain.ErrUnsupportedKind), errors.Is(err, application.ErrInvalidSettings):
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal server error"})
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type runtimeError struct {
	code int
	msg  string
}

func (e *runtimeError) Error() string { return e.msg }
