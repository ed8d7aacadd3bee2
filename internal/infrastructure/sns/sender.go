package sns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/currency-exchange-api/internal/config"
	"github.com/currency-exchange-api/internal/infrastructure/awsconf"
)

// SMSSender sends SMS messages via AWS SNS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type sender struct {
	client *sns.Client
}

// NewSender returns an SNS sender, or one that only logs when SNS_REGION is
// empty.
func NewSender(ctx context.Context, cfg *config.Config) (SMSSender, error) {
	if cfg.SNSRegion == "" {
		return &logSender{logger: slog.Default()}, nil
	}
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, fmt.Errorf("sns: %w", err)
	}
	return &sender{client: sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	})}, nil
}

func (s *sender) SendSMS(ctx context.Context, to, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	})
	return err
}

type logSender struct {
	logger *slog.Logger
}

func (s *logSender) SendSMS(ctx context.Context, to, message string) error {
	s.logger.InfoContext(ctx, "sms not sent, sns disabled", "to", to)
	s.logger.DebugContext(ctx, "sms body", "to", to, "body", message)
	return nil
}
