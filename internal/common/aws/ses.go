// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"assettrack-notifier/internal/notify"
)

// SESAPI is the slice of the SES client the transport needs; tests mock it.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport implements notify.Transport over AWS SES.
type SESTransport struct {
	client SESAPI
}

func NewSESTransport(ctx context.Context, region string) (*SESTransport, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESTransport{client: ses.NewFromConfig(cfg)}, nil
}

// NewSESTransportWithClient wires a prebuilt client (tests).
func NewSESTransportWithClient(client SESAPI) *SESTransport {
	return &SESTransport{client: client}
}

// Send performs exactly one SendEmail call and returns the provider message
// id.
func (t *SESTransport) Send(ctx context.Context, req *notify.SendRequest) (string, error) {
	dest := &types.Destination{
		ToAddresses: []string{req.To},
	}
	if len(req.CC) > 0 {
		dest.CcAddresses = req.CC
	}

	out, err := t.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: dest,
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(req.Subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(req.HTML)},
			},
		},
		Source: aws.String(req.From),
	})
	if err != nil {
		return "", err
	}

	return aws.ToString(out.MessageId), nil
}
