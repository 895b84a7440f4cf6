// Package awsutil builds the process-wide AWS configuration shared by the
// Bedrock and SES clients.
package awsutil

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

type Options struct {
	Region      string
	MaxAttempts int
	MaxBackoff  time.Duration
	MaxConns    int
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	if o.MaxConns <= 0 {
		o.MaxConns = 10
	}
	return o
}

// LoadConfig resolves credentials for opts.Region and installs a bounded
// connection pool plus the standard retryer with jittered backoff.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	opts = opts.withDefaults()

	httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(t *http.Transport) {
		t.MaxIdleConns = opts.MaxConns
		t.MaxIdleConnsPerHost = opts.MaxConns
		t.MaxConnsPerHost = opts.MaxConns
	})

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithHTTPClient(httpClient),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = opts.MaxAttempts
				o.MaxBackoff = opts.MaxBackoff
			})
		}),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return cfg, nil
}
