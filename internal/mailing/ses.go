package mailing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/pkg/logger"
)

// sesAPI is the subset of *sesv2.Client used for sending.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESProvider sends through AWS SES v2. Plain messages use Simple content;
// messages with an attachment are sent as raw MIME.
type SESProvider struct {
	client  sesAPI
	timeout time.Duration
}

// NewSESProvider creates an SES provider with static credentials.
func NewSESProvider(ctx context.Context, cfg config.SESConfig) (*SESProvider, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: AWS_SES_ACCESS_KEY and AWS_SES_SECRET_KEY are required for ses", ErrMisconfigured)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrMisconfigured, err)
	}
	log.Printf("[SES] Client initialized (region=%s)", region)
	return &SESProvider{client: sesv2.NewFromConfig(awsCfg), timeout: cfg.Timeout()}, nil
}

// Name implements Provider.
func (p *SESProvider) Name() domain.ProviderType { return domain.ProviderSES }

// Send implements Provider.
func (p *SESProvider) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(formatAddress(msg.FromName, msg.FromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		EmailTags: []types.MessageTag{
			{Name: aws.String("message_id"), Value: aws.String(tagValue(msg.ID))},
		},
	}

	if msg.Attachment != nil {
		raw, err := buildMIME(msg)
		if err != nil {
			return nil, wrapErr(ErrRejected, err)
		}
		input.Content = &types.EmailContent{Raw: &types.RawMessage{Data: raw}}
	} else {
		input.Content = &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLContent), Charset: aws.String("UTF-8")},
				},
			},
		}
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return nil, classifySES(err)
	}

	var id string
	if out.MessageId != nil {
		id = *out.MessageId
	}
	log.Printf("[SES] Sent to %s (id: %s)", logger.RedactEmail(msg.To), id)
	return &domain.SendResult{MessageID: id, Provider: domain.ProviderSES, SentAt: time.Now()}, nil
}

func classifySES(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "MessageRejected", "MailFromDomainNotVerifiedException", "BadRequestException":
			return wrapErr(ErrRejected, err)
		case "AccessDeniedException", "AccessDenied", "UnrecognizedClientException",
			"InvalidClientTokenId", "SignatureDoesNotMatch", "AccountSuspendedException",
			"SendingPausedException":
			return wrapErr(ErrAuth, err)
		case "TooManyRequestsException", "Throttling", "ThrottlingException", "LimitExceededException":
			return wrapErr(ErrTransport, err)
		}
	}
	return wrapErr(ErrTransport, err)
}

// SES tag values allow only ASCII letters, digits, '_' and '-'.
func tagValue(s string) string {
	if s == "" {
		return "none"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
}
