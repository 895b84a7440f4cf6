// Package server exposes the webhook endpoint and runs notification
// dispatch on a bounded worker pool.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meraki-alert-receiver/internal/assessment"
	"meraki-alert-receiver/internal/meraki"
	"meraki-alert-receiver/internal/metrics"
	"meraki-alert-receiver/internal/notify"
)

// ErrUnauthorized is returned by Process when the shared secret does not match.
var ErrUnauthorized = errors.New("invalid shared secret")

const maxBodyBytes = 1 << 20

type Analyzer interface {
	Analyze(ctx context.Context, prompt string) assessment.Assessment
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg notify.Message) []notify.Delivery
	Channels() []string
}

type Options struct {
	Port            int
	SharedSecret    string
	QueueSize       int
	Workers         int
	DispatchTimeout time.Duration

	// Reported on the health endpoints.
	PrimaryModel   string
	FallbackModels []string
	Candidates     []string
	RoutedModels   []string
}

// Response is the body returned for a processed webhook.
type Response struct {
	Message      string                `json:"message"`
	AlertType    string                `json:"alert_type"`
	Organization string                `json:"organization"`
	Network      string                `json:"network"`
	Analysis     assessment.Assessment `json:"analysis"`
	Timestamp    string                `json:"timestamp"`
}

type dispatchJob struct {
	requestID string
	msg       notify.Message
}

type Server struct {
	opts       Options
	analyzer   Analyzer
	dispatcher Dispatcher
	queue      chan dispatchJob
	workers    sync.WaitGroup
	httpServer *http.Server
	closeOnce  sync.Once
	now        func() time.Time
}

func New(analyzer Analyzer, dispatcher Dispatcher, opts Options) *Server {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 30 * time.Second
	}
	s := &Server{
		opts:       opts,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		queue:      make(chan dispatchJob, opts.QueueSize),
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start launches the dispatch workers. It must be called once before
// webhooks are served.
func (s *Server) Start() {
	for i := 0; i < s.opts.Workers; i++ {
		s.workers.Add(1)
		go s.worker(i + 1)
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	slog.Info("starting meraki-alert-receiver",
		"port", s.opts.Port,
		"primary_model", s.opts.PrimaryModel,
		"fallback_models", len(s.opts.FallbackModels),
		"channels", s.dispatcher.Channels(),
		"workers", s.opts.Workers,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains queued dispatches.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.Close()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, fmt.Errorf("drain dispatch queue: %w", ctx.Err()))
	}
	return err
}

// Close stops the workers once the queue is empty. No webhook may be
// handled after Close.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.queue) })
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleHealthz)
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/alerts/meraki", s.handleWebhook)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"primary_model":   s.opts.PrimaryModel,
		"fallback_models": s.opts.FallbackModels,
		"candidates":      s.opts.Candidates,
		"routed_models":   s.opts.RoutedModels,
		"channels":        s.dispatcher.Channels(),
		"queue_depth":     len(s.queue),
		"worker_count":    s.opts.Workers,
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w.Header())

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)
	log := slog.With("request_id", requestID)

	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		metrics.WebhooksReceivedTotal.WithLabelValues("invalid").Inc()
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp, msg, err := s.Process(r.Context(), raw)
	switch {
	case errors.Is(err, meraki.ErrInvalidPayload):
		metrics.WebhooksReceivedTotal.WithLabelValues("invalid").Inc()
		log.Warn("rejected webhook", "error", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrUnauthorized):
		metrics.WebhooksReceivedTotal.WithLabelValues("unauthorized").Inc()
		log.Warn("rejected webhook", "error", err)
		s.writeError(w, http.StatusUnauthorized, "Invalid shared secret")
		return
	case err != nil:
		metrics.WebhooksReceivedTotal.WithLabelValues("error").Inc()
		log.Error("failed to process webhook", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	metrics.WebhooksReceivedTotal.WithLabelValues("processed").Inc()
	s.enqueue(dispatchJob{requestID: requestID, msg: msg})
	log.Info("webhook processed",
		"alert_type", resp.AlertType,
		"organization", resp.Organization,
		"network", resp.Network,
		"severity", resp.Analysis.Severity,
		"fallback", resp.Analysis.IsFallback(),
	)
	writeJSON(w, http.StatusOK, resp)
}

// Process turns one raw webhook body into an analysis. The returned message
// is ready for dispatch. Errors wrap meraki.ErrInvalidPayload or
// ErrUnauthorized when the request itself is at fault.
func (s *Server) Process(ctx context.Context, raw []byte) (Response, notify.Message, error) {
	payload, err := meraki.ParsePayload(raw)
	if err != nil {
		return Response{}, notify.Message{}, err
	}
	if !payload.VerifySecret(s.opts.SharedSecret) {
		return Response{}, notify.Message{}, ErrUnauthorized
	}
	if err := payload.Validate(); err != nil {
		return Response{}, notify.Message{}, fmt.Errorf("%w: %v", meraki.ErrInvalidPayload, err)
	}

	prompt, err := meraki.BuildPrompt(payload)
	if err != nil {
		return Response{}, notify.Message{}, fmt.Errorf("build prompt: %w", err)
	}

	info := payload.Info()
	result := s.analyzer.Analyze(ctx, prompt)
	now := s.now()

	msg := notify.Message{Assessment: result, Alert: info, Timestamp: now}
	return Response{
		Message:      "Webhook processed successfully",
		AlertType:    info.AlertType,
		Organization: info.OrganizationName,
		Network:      info.NetworkName,
		Analysis:     result,
		Timestamp:    now.Format(time.RFC3339),
	}, msg, nil
}

func (s *Server) enqueue(job dispatchJob) {
	select {
	case s.queue <- job:
		metrics.DispatchQueueDepth.Inc()
	default:
		slog.Warn("dispatch queue full, sending inline", "request_id", job.requestID)
		s.dispatch(0, job)
	}
}

func (s *Server) worker(id int) {
	defer s.workers.Done()
	for job := range s.queue {
		metrics.DispatchQueueDepth.Dec()
		s.dispatch(id, job)
	}
}

func (s *Server) dispatch(workerID int, job dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.DispatchTimeout)
	defer cancel()

	deliveries := s.dispatcher.Dispatch(ctx, job.msg)
	failed := 0
	for _, d := range deliveries {
		if d.Error != "" {
			failed++
		}
	}
	slog.Info("notification dispatch completed",
		"request_id", job.requestID,
		"worker", workerID,
		"channels", len(deliveries),
		"failed", failed,
	)
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":     "Request failed",
		"message":   message,
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
