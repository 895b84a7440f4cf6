package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"meraki-alert-receiver/internal/metrics"
)

const anthropicVersion = "bedrock-2023-05-31"

const (
	modeDirect  = "direct"
	modeProfile = "profile"
	modeRetry   = "direct_retry"
)

// Client is the subset of the bedrockruntime client the engine needs.
type Client interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Params are the sampling settings sent with every request.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Engine invokes one logical model, resolving its inference profile and
// falling back to the plain model id when the profile is rejected.
type Engine struct {
	client   Client
	registry *Registry
	params   Params
	timeout  time.Duration
}

// NewEngine wires the shared client and registry. A zero timeout leaves
// deadlines to the caller's context.
func NewEngine(client Client, registry *Registry, params Params, timeout time.Duration) *Engine {
	return &Engine{
		client:   client,
		registry: registry,
		params:   params,
		timeout:  timeout,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Invoke sends prompt to model and returns the first content block's text.
// Failures are returned as *InvocationError.
func (e *Engine) Invoke(ctx context.Context, prompt, model string) (string, error) {
	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        e.params.MaxTokens,
		Messages:         []message{{Role: "user", Content: prompt}},
		Temperature:      e.params.Temperature,
		TopP:             e.params.TopP,
	})
	if err != nil {
		return "", &InvocationError{Model: model, Target: model, Err: fmt.Errorf("marshal bedrock request: %w", err)}
	}

	profile, ok := e.registry.Resolve(model)
	if !ok {
		slog.Info("invoking model directly", "model", model)
		return e.call(ctx, model, model, modeDirect, body)
	}

	slog.Info("invoking model through inference profile", "model", model, "profile", profile)
	text, err := e.call(ctx, model, profile, modeProfile, body)
	if err == nil || !errors.Is(err, ErrRouting) {
		return text, err
	}

	slog.Warn("inference profile failed, retrying with model id",
		"model", model,
		"profile", profile,
		"error", err,
	)
	metrics.RoutingRetriesTotal.WithLabelValues(model).Inc()
	return e.call(ctx, model, model, modeRetry, body)
}

func (e *Engine) call(ctx context.Context, model, target, mode string, body []byte) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(target),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	metrics.ModelInvocationDurationSeconds.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ModelInvocationsTotal.WithLabelValues(model, mode, "error").Inc()
		return "", &InvocationError{Model: model, Target: target, Err: classifyError(err)}
	}

	text, err := firstContentText(output)
	if err != nil {
		metrics.ModelInvocationsTotal.WithLabelValues(model, mode, "error").Inc()
		return "", &InvocationError{Model: model, Target: target, Err: err}
	}

	metrics.ModelInvocationsTotal.WithLabelValues(model, mode, "success").Inc()
	return text, nil
}

func firstContentText(output *bedrockruntime.InvokeModelOutput) (string, error) {
	if output == nil {
		return "", errors.New("empty bedrock response")
	}
	var parsed invokeResponse
	if err := json.Unmarshal(output.Body, &parsed); err != nil {
		return "", fmt.Errorf("decode bedrock response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", errors.New("bedrock response contained no content blocks")
	}
	return parsed.Content[0].Text, nil
}
