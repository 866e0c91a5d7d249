// Copyright (c) 2025 BVK Chaitanya

// Package telegram sends operator notifications through a Telegram bot.
// Notifications are best effort; a failed send never affects trading.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
)

type Secrets struct {
	BotToken string `json:"token"`

	// ChatID is the chat that receives the notifications.
	ChatID int64 `json:"chat"`
}

func (v *Secrets) Check() error {
	if len(v.BotToken) == 0 {
		return fmt.Errorf("bot token cannot be empty")
	}
	if v.ChatID == 0 {
		return fmt.Errorf("chat id cannot be zero")
	}
	return nil
}

type Client struct {
	bot *bot.Bot

	chatID int64
}

func New(ctx context.Context, secrets *Secrets) (*Client, error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}
	b, err := bot.New(secrets.BotToken)
	if err != nil {
		return nil, err
	}
	if _, err := b.GetMe(ctx); err != nil {
		return nil, err
	}
	return &Client{bot: b, chatID: secrets.ChatID}, nil
}

// SendMessage delivers one notification. Errors are logged and returned,
// but callers are expected to ignore them.
func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	msg := at.Format("2006-01-02 15:04:05 MST") + " " + text
	slog.Info("sending notification", "at", at, "message", text)

	m := &bot.SendMessageParams{
		ChatID: c.chatID,
		Text:   msg,
	}
	if _, err := c.bot.SendMessage(ctx, m); err != nil {
		slog.Error("could not send the notification (ignored)", "err", err)
		return err
	}
	return nil
}
