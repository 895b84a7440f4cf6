package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"meraki-alert-receiver/internal/analysis"
	"meraki-alert-receiver/internal/awsutil"
	"meraki-alert-receiver/internal/bedrock"
	"meraki-alert-receiver/internal/config"
	"meraki-alert-receiver/internal/notify"
)

type pipeline struct {
	registry   *bedrock.Registry
	analyzer   *analysis.Analyzer
	dispatcher *notify.Dispatcher
}

// buildPipeline creates the shared AWS clients once and wires them into
// the analyzer and the notification channels.
func buildPipeline(ctx context.Context, cfg config.Config) (*pipeline, error) {
	awsCfg, err := awsutil.LoadConfig(ctx, awsutil.Options{
		Region:      cfg.AWSRegion,
		MaxAttempts: cfg.MaxAttempts,
		MaxConns:    cfg.MaxConns,
	})
	if err != nil {
		return nil, err
	}

	registry := bedrock.NewRegistry(cfg.InferenceProfiles)
	engine := bedrock.NewEngine(bedrockruntime.NewFromConfig(awsCfg), registry, bedrock.Params{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}, cfg.LLMTimeout)

	return &pipeline{
		registry:   registry,
		analyzer:   analysis.New(engine, cfg.PrimaryModel, cfg.FallbackModels),
		dispatcher: notify.NewDispatcher(buildNotifiers(cfg, awsCfg)...),
	}, nil
}

// buildNotifiers returns only the channels that are fully configured.
func buildNotifiers(cfg config.Config, awsCfg aws.Config) []notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.GoogleChatWebhookURL != "" {
		notifiers = append(notifiers, notify.NewGoogleChat(cfg.GoogleChatWebhookURL))
	} else {
		slog.Info("google chat notifications disabled", "reason", "GOOGLE_CHAT_WEBHOOK_URL not set")
	}

	switch {
	case cfg.SESSender == "":
		slog.Info("email notifications disabled", "reason", "SES_SENDER_EMAIL not set")
	case len(cfg.SESRecipients) == 0:
		slog.Warn("email notifications disabled", "reason", "no valid SES_RECIPIENT_EMAILS")
	default:
		notifiers = append(notifiers, notify.NewSES(sesv2.NewFromConfig(awsCfg), cfg.SESSender, cfg.SESRecipients))
	}
	return notifiers
}

func describeModels(w io.Writer, cfg config.Config) error {
	registry := bedrock.NewRegistry(cfg.InferenceProfiles)
	candidates := analysis.New(nil, cfg.PrimaryModel, cfg.FallbackModels).Candidates()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tMODEL\tROUTING")
	for i, model := range candidates {
		routing := "direct"
		if profile, ok := registry.Resolve(model); ok {
			routing = "profile " + profile
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, model, routing)
	}
	return tw.Flush()
}
