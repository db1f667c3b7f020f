// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the slice of the SNS client the publisher needs; tests mock it.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AlertPublisher pushes run-failure summaries to an ops SNS topic.
type AlertPublisher struct {
	client   SNSAPI
	topicARN string
}

func NewAlertPublisher(ctx context.Context, region, topicARN string) (*AlertPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &AlertPublisher{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// NewAlertPublisherWithClient wires a prebuilt client (tests).
func NewAlertPublisherWithClient(client SNSAPI, topicARN string) *AlertPublisher {
	return &AlertPublisher{client: client, topicARN: topicARN}
}

// PublishAlert sends one message to the topic.
func (p *AlertPublisher) PublishAlert(ctx context.Context, subject, message string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	return err
}
