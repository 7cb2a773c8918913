// Package notifier предоставляет клиент для уведомления чата поддержки через webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client инкапсулирует HTTP-взаимодействие с webhook чата поддержки.
type Client struct {
	webhookURL string
	httpClient *retryablehttp.Client
}

// TicketEvent описывает уведомление о новом обращении в поддержку.
type TicketEvent struct {
	TicketID  int64  `json:"ticket_id"`
	AccountID int64  `json:"account_id"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
}

// NewClient создаёт HTTP-клиент для отправки уведомлений на указанный webhook.
func NewClient(webhookURL string) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.RetryWaitMin = 500 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = 5 * time.Second
	httpClient.Logger = nil

	return &Client{
		webhookURL: strings.TrimRight(webhookURL, "/"),
		httpClient: httpClient,
	}
}

// NotifyTicket отправляет уведомление о новом обращении. Доставка не
// гарантируется: ошибка возвращается вызывающему только для логирования
// и никогда не влияет на исходный запрос.
func (c *Client) NotifyTicket(ctx context.Context, event TicketEvent) error {
	if c == nil || c.webhookURL == "" {
		return fmt.Errorf("notifier not configured")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
