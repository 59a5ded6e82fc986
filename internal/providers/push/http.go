package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Config struct {
	Endpoint  string
	AuthToken string
}

// HTTPProvider delivers notifications through the club app's push relay.
type HTTPProvider struct {
	cfg        Config
	httpClient *http.Client
}

func NewHTTP(cfg Config) *HTTPProvider {
	return &HTTPProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pushRequest struct {
	UserID string            `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

func (p *HTTPProvider) Send(ctx context.Context, userID snowflake.ID, notification Notification) error {
	payload, err := json.Marshal(pushRequest{
		UserID: userID.String(),
		Title:  notification.Title,
		Body:   notification.Body,
		Data:   notification.Data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.AuthToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push relay returned status %d", resp.StatusCode)
	}
	return nil
}
