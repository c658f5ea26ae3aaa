// Package line pushes messages to users through the LINE Messaging API.
package line

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/Nakkasenp65/register-item-delivery/config"
)

// Pusher sends a Flex message to one user
type Pusher interface {
	PushFlex(ctx context.Context, to string, msg *linebot.FlexMessage) error
}

// Client Messaging API client
type Client struct {
	bot *linebot.Client
}

// NewClient returns nil, nil when no channel access token is configured
func NewClient(cfg *config.LINEConfig) (*Client, error) {
	if cfg.ChannelAccessToken == "" {
		return nil, nil
	}
	bot, err := linebot.New(cfg.ChannelSecret, cfg.ChannelAccessToken)
	if err != nil {
		return nil, fmt.Errorf("create line bot client: %w", err)
	}
	return &Client{bot: bot}, nil
}

// PushFlex pushes msg to the user
func (c *Client) PushFlex(ctx context.Context, to string, msg *linebot.FlexMessage) error {
	if _, err := c.bot.PushMessage(to, msg).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}
