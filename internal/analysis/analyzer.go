// Package analysis walks the configured model cascade for one prompt and
// always produces a usable assessment.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meraki-alert-receiver/internal/assessment"
	"meraki-alert-receiver/internal/metrics"
)

// Invoker calls a single model. *bedrock.Engine implements it.
type Invoker interface {
	Invoke(ctx context.Context, prompt, model string) (string, error)
}

type Analyzer struct {
	invoker   Invoker
	primary   string
	fallbacks []string
	validate  func(assessment.Assessment) error
}

// New copies fallbacks; their order is the order of the cascade.
func New(invoker Invoker, primary string, fallbacks []string) *Analyzer {
	return &Analyzer{
		invoker:   invoker,
		primary:   strings.TrimSpace(primary),
		fallbacks: append([]string(nil), fallbacks...),
		validate:  assessment.Validate,
	}
}

func (a *Analyzer) Primary() string { return a.primary }

func (a *Analyzer) Fallbacks() []string { return append([]string(nil), a.fallbacks...) }

// Candidates returns the primary followed by the fallbacks with blanks and
// repeats removed, in the order they are tried.
func (a *Analyzer) Candidates() []string {
	seen := make(map[string]struct{}, len(a.fallbacks)+1)
	out := make([]string, 0, len(a.fallbacks)+1)
	for _, model := range append([]string{a.primary}, a.fallbacks...) {
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		if _, dup := seen[model]; dup {
			continue
		}
		seen[model] = struct{}{}
		out = append(out, model)
	}
	return out
}

// Analyze tries each candidate once, in order, and normalizes the first
// answer. When every candidate fails it returns assessment.Fallback with the
// last error. It never panics outward.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (result assessment.Assessment) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("analysis panicked, using fallback analysis", "panic", r)
			metrics.AnalysesTotal.WithLabelValues("panic").Inc()
			result = assessment.Fallback(fmt.Sprint(r))
		}
		metrics.AnalysisDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for i, model := range a.Candidates() {
		if i > 0 {
			slog.Info("trying fallback model", "model", model, "attempt", i+1)
		}
		raw, err := a.invoker.Invoke(ctx, prompt, model)
		if err != nil {
			lastErr = err
			if i == 0 {
				slog.Error("bedrock analysis failed with primary model", "model", model, "error", err)
			} else {
				slog.Error("fallback model also failed", "model", model, "error", err)
			}
			continue
		}

		result := assessment.Normalize(raw)
		if err := a.validate(result); err != nil {
			slog.Error("normalized analysis failed schema validation, using fallback analysis", "model", model, "error", err)
			metrics.AnalysesTotal.WithLabelValues("schema_invalid").Inc()
			return assessment.Fallback("schema validation failed")
		}

		outcome := "primary"
		if i > 0 {
			outcome = "fallback_model"
		}
		metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
		slog.Info("alert analyzed", "model", model, "attempts", i+1, "fallback", result.IsFallback())
		return result
	}

	reason := "no models configured"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	slog.Error("all bedrock models failed, using fallback analysis", "error", reason)
	metrics.AnalysesTotal.WithLabelValues("exhausted").Inc()
	return assessment.Fallback(reason)
}
