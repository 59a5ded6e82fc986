package push

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Notification is one push message addressed to a club member.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type Provider interface {
	Send(ctx context.Context, userID snowflake.ID, notification Notification) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, userID snowflake.ID, notification Notification) error {
	return nil
}
