package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES emails the alert to a fixed recipient list.
type SES struct {
	client     sesClient
	sender     string
	recipients []string
}

func NewSES(client sesClient, sender string, recipients []string) *SES {
	return &SES{
		client:     client,
		sender:     sender,
		recipients: append([]string(nil), recipients...),
	}
}

func (s *SES) Name() string { return "ses" }

func (s *SES) Send(ctx context.Context, msg Message) error {
	if len(s.recipients) == 0 {
		return errors.New("no email recipients configured")
	}

	html, err := HTMLBody(msg)
	if err != nil {
		return err
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.sender),
		Destination:      &types.Destination{ToAddresses: s.recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(EmailSubject(msg)),
				Body: &types.Body{
					Text: utf8Content(TextBody(msg)),
					Html: utf8Content(html),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email via ses: %w", err)
	}
	if out != nil && out.MessageId != nil {
		slog.Debug("ses accepted email", "message_id", aws.ToString(out.MessageId), "recipients", len(s.recipients))
	}
	return nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}
