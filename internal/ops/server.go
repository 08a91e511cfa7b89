package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// EmailProber sends a test email for the canary endpoint.
type EmailProber interface {
	Configured() bool
	SendTest(to, name string) error
}

// Server is the internal operations endpoint: liveness, Prometheus
// metrics, and an SMTP canary. It is never exposed to end users.
type Server struct {
	httpServer  *http.Server
	feedHealthy func() bool
	email       EmailProber
	canaryToken string
	logger      *zap.Logger
}

func NewServer(addr string, feedHealthy func() bool, email EmailProber, canaryToken string, logger *zap.Logger) *Server {
	s := &Server{
		feedHealthy: feedHealthy,
		email:       email,
		canaryToken: canaryToken,
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/canary/email", s.handleCanaryEmail)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.feedHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "reason": "feed not consuming"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type canaryEmailRequest struct {
	To   string `json:"to"`
	Name string `json:"name"`
}

type canaryEmailResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	SentTo   string `json:"sent_to,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// handleCanaryEmail sends a test email to verify SMTP connectivity.
//
//	POST /canary/email
//	Authorization: Bearer <CANARY_TOKEN>
//	{"to": "user@example.com", "name": "Test User"}
func (s *Server) handleCanaryEmail(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeCanary(w, http.StatusMethodNotAllowed, canaryEmailResponse{
			Status: "error", Message: "method not allowed",
		})
		return
	}
	if !s.authorized(r) {
		writeCanary(w, http.StatusUnauthorized, canaryEmailResponse{
			Status: "error", Message: "unauthorized: provide Authorization: Bearer <CANARY_TOKEN>",
		})
		return
	}

	var req canaryEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCanary(w, http.StatusBadRequest, canaryEmailResponse{
			Status: "error", Message: "invalid JSON body: " + err.Error(),
		})
		return
	}
	if req.To == "" {
		writeCanary(w, http.StatusBadRequest, canaryEmailResponse{
			Status: "error", Message: `"to" field is required`,
		})
		return
	}
	if req.Name == "" {
		req.Name = "Canary Test"
	}

	if !s.email.Configured() {
		writeCanary(w, http.StatusServiceUnavailable, canaryEmailResponse{
			Status: "error", Message: "SMTP not configured",
		})
		return
	}

	start := time.Now()
	err := s.email.SendTest(req.To, req.Name)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn("canary email failed", zap.Error(err))
		writeCanary(w, http.StatusInternalServerError, canaryEmailResponse{
			Status:   "error",
			Message:  "email delivery failed: " + err.Error(),
			Duration: duration.String(),
		})
		return
	}

	writeCanary(w, http.StatusOK, canaryEmailResponse{
		Status:   "ok",
		Message:  "test email sent",
		SentTo:   req.To,
		Duration: duration.String(),
	})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.canaryToken == "" {
		return false
	}
	return r.Header.Get("Authorization") == "Bearer "+s.canaryToken
}

func writeCanary(w http.ResponseWriter, status int, resp canaryEmailResponse) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
