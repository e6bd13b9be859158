package sns

import (
	"context"
	"encoding/json"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/identity-api/internal/config"
)

// Event types published to the security topic.
const (
	EventAccountCreated  = "account_created"
	EventPasswordChanged = "password_changed"
	EventAccountDeleted  = "account_deleted"
)

// EventPublisher publishes account-lifecycle events via AWS SNS.
// Delivery is best-effort; callers must not fail a request on publish errors.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, email string) error
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (EventPublisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

func (p *publisher) Publish(ctx context.Context, eventType, email string) error {
	if p.topicARN == "" {
		return nil
	}
	payload, err := json.Marshal(map[string]string{
		"type":  eventType,
		"email": email,
		"at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	msg := string(payload)
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Message:  &msg,
	})
	return err
}
