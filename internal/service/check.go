package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
	"github.com/cloo-solutions/textbook-vault/internal/telemetry"
	"go.uber.org/zap"
)

// SmokeTestText is embedded by the connectivity check
const SmokeTestText = "Newton's Second Law: F = ma"

// CheckStatus is the outcome of one connectivity step
type CheckStatus string

const (
	StatusStable  CheckStatus = "STABLE"
	StatusFailed  CheckStatus = "FAILED"
	StatusSkipped CheckStatus = "SKIPPED"
)

// RawEmbedder exposes the model output before the configured vector size is enforced, so the
// check can report what the model actually produces.
type RawEmbedder interface {
	EmbedRaw(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// StoreProber performs a minimal read against the knowledge table
type StoreProber interface {
	Probe(ctx context.Context) error
}

// StoreHandle is a constructed client for the configured store
type StoreHandle interface {
	StoreProber
	Close()
}

// StoreConnector builds a store client handle. Implementations must not contact the store.
type StoreConnector func(ctx context.Context) (StoreHandle, error)

// CheckOptions configures a connectivity check
type CheckOptions struct {
	// Store names the backend being checked, "postgres" or "rest"
	Store string
	// Endpoint is the database URL or REST URL the handle is built from
	Endpoint string
	// APIKey is the REST service key, unused for postgres
	APIKey string
	// Probe enables a single-row read after construction
	Probe bool
}

// CheckReport collects the outcome of every step; failures are recorded, not returned.
type CheckReport struct {
	Store        string
	Dimensions   int
	EmbeddingErr error
	Link         CheckStatus
	LinkErr      error
	ProbeStatus  CheckStatus
	ProbeErr     error
	Warnings     []string
}

// LinkLine renders the client construction outcome, e.g. "FAILED (invalid URL)".
func (r *CheckReport) LinkLine() string {
	if r.LinkErr != nil {
		return fmt.Sprintf("%s (%v)", r.Link, r.LinkErr)
	}
	return string(r.Link)
}

// ProbeLine renders the probe outcome with a hint for known failure causes.
func (r *CheckReport) ProbeLine() string {
	if r.ProbeErr == nil {
		return string(r.ProbeStatus)
	}
	switch {
	case errors.Is(r.ProbeErr, domain.ErrTableNotFound):
		return fmt.Sprintf("%s (table missing, run `vault migrate`: %v)", r.ProbeStatus, r.ProbeErr)
	case errors.Is(r.ProbeErr, domain.ErrPermissionDenied):
		return fmt.Sprintf("%s (permission denied, check the service-role key: %v)", r.ProbeStatus, r.ProbeErr)
	default:
		return fmt.Sprintf("%s (%v)", r.ProbeStatus, r.ProbeErr)
	}
}

// OK reports whether every step that ran succeeded.
func (r *CheckReport) OK() bool {
	return r.EmbeddingErr == nil && r.Link == StatusStable && r.ProbeStatus != StatusFailed
}

// CheckService verifies the embedder produces a vector and a store client can be constructed
type CheckService struct {
	embedder EmbeddingClient
	connect  StoreConnector
	opts     CheckOptions
	logger   *zap.Logger
}

// NewCheckService creates a new CheckService instance
func NewCheckService(embedder EmbeddingClient, connect StoreConnector, opts CheckOptions, logger *zap.Logger) *CheckService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckService{
		embedder: embedder,
		connect:  connect,
		opts:     opts,
		logger:   logger,
	}
}

// Run executes the check. Every failure ends up in the report.
func (s *CheckService) Run(ctx context.Context) *CheckReport {
	ctx, span := telemetry.StartSpan(ctx, "CheckService.Run", telemetry.SpanAttributes{
		Operation: "check",
	})
	defer span.End()

	report := &CheckReport{
		Store:       s.opts.Store,
		Link:        StatusFailed,
		ProbeStatus: StatusSkipped,
		Warnings:    DiagnoseCredentials(s.opts),
	}

	vector, err := s.embed(ctx)
	if err != nil {
		report.EmbeddingErr = err
		s.logger.Warn("embedding check failed", zap.Error(err))
	} else {
		report.Dimensions = len(vector)
		s.logger.Info("embedding check passed", zap.Int("dimensions", report.Dimensions))
		if raw, ok := s.embedder.(RawEmbedder); ok && raw.Dimensions() > 0 && raw.Dimensions() != len(vector) {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"model returned %d dimensions but %d are configured (VAULT_EMBEDDING_DIMENSIONS); ingestion will reject its vectors",
				len(vector), raw.Dimensions()))
		}
	}

	handle, err := s.connect(ctx)
	if err != nil {
		report.LinkErr = err
		s.logger.Warn("store client construction failed", zap.String("store", s.opts.Store), zap.Error(err))
		return report
	}
	defer handle.Close()
	report.Link = StatusStable

	if !s.opts.Probe {
		return report
	}

	if err := handle.Probe(ctx); err != nil {
		report.ProbeStatus = StatusFailed
		report.ProbeErr = err
		s.logger.Warn("store probe failed", zap.String("store", s.opts.Store), zap.Error(err))
		return report
	}
	report.ProbeStatus = StatusStable
	return report
}

func (s *CheckService) embed(ctx context.Context) ([]float32, error) {
	if raw, ok := s.embedder.(RawEmbedder); ok {
		return raw.EmbedRaw(ctx, SmokeTestText)
	}
	return s.embedder.GenerateEmbedding(ctx, SmokeTestText)
}

// DiagnoseCredentials flags credential values that are well formed enough to construct a
// client but will not work against the hosted service.
func DiagnoseCredentials(opts CheckOptions) []string {
	var warnings []string

	switch opts.Store {
	case "rest":
		if opts.Endpoint == "" {
			return append(warnings, "REST URL is empty")
		}
		u, err := url.Parse(opts.Endpoint)
		if err != nil {
			return append(warnings, fmt.Sprintf("REST URL does not parse: %v", err))
		}
		if u.Scheme != "https" {
			warnings = append(warnings, fmt.Sprintf("REST URL should use https, got %q", u.Scheme))
		}
		if !strings.Contains(u.Host, ".supabase.co") {
			warnings = append(warnings, fmt.Sprintf("REST URL host %q is not a supabase.co project", u.Host))
		}
		if strings.Contains(u.Path, "/rest/v1") {
			warnings = append(warnings, "REST URL should be the project URL without /rest/v1")
		}
		if opts.APIKey == "" {
			warnings = append(warnings, "service key is empty")
		} else if !strings.HasPrefix(opts.APIKey, "ey") {
			warnings = append(warnings, "service key does not look like a JWT (expected it to start with \"ey\")")
		}
	case "postgres":
		if opts.Endpoint == "" {
			return append(warnings, "database URL is empty")
		}
		if !strings.HasPrefix(opts.Endpoint, "postgres://") && !strings.HasPrefix(opts.Endpoint, "postgresql://") {
			warnings = append(warnings, "database URL should start with postgres:// or postgresql://")
		}
	}

	return warnings
}
