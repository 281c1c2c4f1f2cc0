// internal/notify/channels.go
package notify

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"match-engine/internal/common/httpx"
	"match-engine/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Notification is what every channel receives for one qualifying match.
type Notification struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"userId"`
	Email       string                   `json:"email,omitempty"`
	ProductID   string                   `json:"productId"`
	ProductName string                   `json:"productName"`
	Result      models.HybridMatchResult `json:"result"`
	SentAt      time.Time                `json:"sentAt"`
}

// Channel delivers one notification. Each channel is independently
// best-effort; a failure is reported to the dispatcher, never to siblings.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// --- Email (SES) ---

// SESService is the slice of the SES API the email channel needs; mocked in
// tests.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type EmailChannel struct {
	ses       SESService
	fromEmail string
}

func NewEmailChannel(sesClient SESService, fromEmail string) *EmailChannel {
	return &EmailChannel{ses: sesClient, fromEmail: fromEmail}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, n Notification) error {
	if n.Email == "" {
		return fmt.Errorf("recipient has no email address")
	}

	subject := fmt.Sprintf("New match: %s", n.ProductName)
	body := fmt.Sprintf(
		"We found a product matching your preferences.\n\n%s (score %d/100)\n\nWhy it matches:\n- %s\n",
		n.ProductName, n.Result.HybridScore, strings.Join(n.Result.Reasons, "\n- "),
	)

	_, err := c.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.Email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
		Source: awssdk.String(c.fromEmail),
	})
	return err
}

// --- In-app (postgres) ---

type InAppChannel struct {
	db *sql.DB
}

func NewInAppChannel(db *sql.DB) *InAppChannel {
	return &InAppChannel{db: db}
}

func (c *InAppChannel) Name() string { return "in_app" }

func (c *InAppChannel) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Result)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, product_id, title, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.ProductID,
		fmt.Sprintf("New match: %s", n.ProductName), payload, n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// --- Webhook (HTTP POST) ---

type WebhookChannel struct {
	url    string
	client *httpx.Client
}

func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: httpx.NewClient(timeout),
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

// --- SNS topic fan-out ---

// SNSService is the slice of the SNS API the topic channel needs.
type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type SNSChannel struct {
	sns      SNSService
	topicARN string
}

func NewSNSChannel(snsClient SNSService, topicARN string) *SNSChannel {
	return &SNSChannel{sns: snsClient, topicARN: topicARN}
}

func (c *SNSChannel) Name() string { return "sns" }

func (c *SNSChannel) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal sns message: %w", err)
	}

	_, err = c.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(c.topicARN),
		Message:  awssdk.String(string(body)),
	})
	return err
}
