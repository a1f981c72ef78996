package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"student_followup_bot/internal/domain/relay"
)

// ErrDeliveryFailed is returned when the webhook does not acknowledge a batch.
var ErrDeliveryFailed = errors.New("webhook delivery failed")

// Client posts message batches to a catch-hook URL (Zapier or compatible).
type Client struct {
	HTTPClient *http.Client
	url        string
	logger     *logrus.Entry
}

func NewClient(url string, timeout time.Duration, logger *logrus.Entry) *Client {
	return &Client{HTTPClient: &http.Client{Timeout: timeout}, url: url, logger: logger}
}

// Deliver sends the whole batch as one JSON array. An empty batch sends nothing.
func (c *Client) Deliver(ctx context.Context, batch []relay.Message) error {
	if len(batch) == 0 {
		return nil
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithField("messages", len(batch)).Info("Sending messages to webhook")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: %s", ErrDeliveryFailed, resp.Status, strings.TrimSpace(string(body)))
	}
	c.logger.WithField("response", strings.TrimSpace(string(body))).Debug("Webhook acknowledged batch")
	return nil
}
