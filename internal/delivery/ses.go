package delivery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
)

// SESAPI is the part of the SES v2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends report emails via AWS SES.
type SESSender struct {
	client SESAPI
	from   string
}

// NewSESSender wraps an existing SES client.
func NewSESSender(client SESAPI, from string) *SESSender {
	return &SESSender{client: client, from: from}
}

// NewSESSenderFromConfig builds the SES client from email settings. Static
// keys are used when both are set, otherwise the default AWS chain.
func NewSESSenderFromConfig(ctx context.Context, cfg config.EmailConfig) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.From), nil
}

// Send delivers msg to all recipients in one SES call.
func (s *SESSender) Send(ctx context.Context, msg *Message) (string, error) {
	if len(msg.To) == 0 {
		return "", ErrNoRecipients
	}
	from := msg.From
	if from == "" {
		from = s.from
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    &types.Body{},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("source"), Value: aws.String("ga-report")},
		},
	}
	if msg.HTML != "" {
		input.Content.Simple.Body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	messageID := aws.ToString(result.MessageId)

	redacted := make([]string, len(msg.To))
	for i, to := range msg.To {
		redacted[i] = logger.RedactEmail(to)
	}
	logger.Info("report email sent", "recipients", redacted, "message_id", messageID)
	return messageID, nil
}

// New picks the sender for a run: console when dryRun is set or email is
// not configured, SES otherwise.
func New(ctx context.Context, cfg config.EmailConfig, dryRun bool, console *ConsoleSender) (Sender, error) {
	if dryRun || !cfg.Enabled() {
		return console, nil
	}
	return NewSESSenderFromConfig(ctx, cfg)
}
