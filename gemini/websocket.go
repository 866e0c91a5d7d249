// Copyright (c) 2025 BVK Chaitanya

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"path"

	"github.com/bvk/gembot/gemini/internal"

	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

// OrderEvent is one message from the /v1/order/events websocket feed.
type OrderEvent = internal.OrderEvent

// OrderEvents subscribes to the private order events websocket feed.
// Events are fanned out on the returned receiver until the context is
// canceled or the connection drops. The bot core stays poll driven; this
// feed exists for operators who want live fill updates.
func (c *Client) OrderEvents(ctx context.Context) (*topic.Receiver[*internal.OrderEvent], error) {
	addrURL := &url.URL{
		Scheme: c.opts.WebsocketURL.Scheme,
		Host:   c.opts.WebsocketURL.Host,
		Path:   path.Join(c.opts.WebsocketURL.Path, "/order/events"),
	}
	headers, err := c.signRequest(ctx, addrURL.Path, nil)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(ctx, addrURL.String(), headers)
	if err != nil {
		slog.Error("could not dial to the order events feed", "url", addrURL, "err", err)
		return nil, err
	}

	events := topic.New[*internal.OrderEvent]()
	receiver, err := topic.Subscribe(events, 0, false)
	if err != nil {
		conn.Close()
		return nil, err
	}

	stopf := context.AfterFunc(ctx, func() {
		conn.Close()
		receiver.Close()
	})
	go func() {
		defer stopf()
		if err := readOrderEvents(conn, events); err != nil {
			if ctx.Err() == nil {
				slog.Warn("order events feed has closed", "err", err)
			}
		}
		conn.Close()
		receiver.Close()
	}()
	return receiver, nil
}

// readOrderEvents pumps websocket messages into the topic. The feed
// interleaves subscription acks and heartbeats with arrays of order
// events; only the arrays are forwarded.
func readOrderEvents(conn *websocket.Conn, events *topic.Topic[*internal.OrderEvent]) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		var batch []*internal.OrderEvent
		if err := json.Unmarshal(data, &batch); err != nil {
			// Not an event array; ack or heartbeat.
			var single internal.OrderEvent
			if err := json.Unmarshal(data, &single); err != nil {
				slog.Warn("unexpected order events message (ignored)", "data", string(data))
				continue
			}
			if single.Type == "subscription_ack" || single.Type == "heartbeat" {
				continue
			}
			batch = append(batch, &single)
		}
		for _, event := range batch {
			events.Send(event)
		}
	}
}
