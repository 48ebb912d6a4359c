// Package bus carries bot events and notification requests over NATS. The
// transport adapter on the other side of the bus owns actual chat delivery;
// this service only consumes inbound events and publishes outbound requests.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects relative to the configured base.
const (
	subjectSubmissions = "events.submission"
	subjectCommands    = "events.command"
	subjectButtons     = "events.button"
	subjectTexts       = "events.text"
	subjectNotify      = "out.notify"
	subjectBroadcast   = "out.broadcast"
	subjectFiles       = "out.file"

	queueGroup = "darsbot-core"
)

// SubmissionEvent is an inbound document message.
type SubmissionEvent struct {
	UserID     int64  `json:"user_id"`
	FullName   string `json:"full_name"`
	Username   string `json:"username"`
	Caption    string `json:"caption"`
	Filename   string `json:"filename"`
	FileRef    string `json:"file_ref"`
	ChatID     int64  `json:"chat_id"`
	ChatType   string `json:"chat_type"`
	ReplyToBot bool   `json:"reply_to_bot"`
}

// CommandEvent is an inbound slash command.
type CommandEvent struct {
	Name     string   `json:"name"`
	Args     []string `json:"args"`
	Sender   int64    `json:"sender"`
	FullName string   `json:"full_name"`
	Username string   `json:"username"`
	ChatID   int64    `json:"chat_id"`
	ChatType string   `json:"chat_type"`
}

// ButtonEvent is an inbound button press on a review listing.
type ButtonEvent struct {
	Action   string `json:"action"`
	TargetID uint   `json:"target_id"`
	Sender   int64  `json:"sender"`
	ChatID   int64  `json:"chat_id"`
}

// TextEvent is an inbound plain text message.
type TextEvent struct {
	Text   string `json:"text"`
	Sender int64  `json:"sender"`
	ChatID int64  `json:"chat_id"`
}

// NotifyRequest asks the transport to message a single recipient.
type NotifyRequest struct {
	Recipient int64     `json:"recipient"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
}

// BroadcastRequest asks the transport to post into the broadcast channel.
type BroadcastRequest struct {
	ChatID int64     `json:"chat_id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// FileRequest asks the transport to forward a stored file to a recipient.
type FileRequest struct {
	Recipient int64     `json:"recipient"`
	FileRef   string    `json:"file_ref"`
	Caption   string    `json:"caption"`
	SentAt    time.Time `json:"sent_at"`
}

// EventHandler receives decoded inbound events.
type EventHandler interface {
	HandleSubmission(ctx context.Context, event SubmissionEvent)
	HandleCommand(ctx context.Context, event CommandEvent)
	HandleButton(ctx context.Context, event ButtonEvent)
	HandleText(ctx context.Context, event TextEvent)
}

// Client wraps the NATS connection for the bot subjects.
type Client struct {
	conn            *nats.Conn
	base            string
	broadcastChatID int64
	logger          zerolog.Logger
}

// New constructs a bus client rooted at the given subject base (for example
// "darsbot").
func New(conn *nats.Conn, base string, broadcastChatID int64, logger zerolog.Logger) *Client {
	return &Client{
		conn:            conn,
		base:            base,
		broadcastChatID: broadcastChatID,
		logger:          logger.With().Str("component", "bus").Logger(),
	}
}

// Notify publishes a single-recipient notification request.
func (c *Client) Notify(_ context.Context, recipient int64, text string) error {
	return c.publish(subjectNotify, NotifyRequest{Recipient: recipient, Text: text, SentAt: time.Now().UTC()})
}

// Broadcast publishes a broadcast-channel notification request.
func (c *Client) Broadcast(_ context.Context, text string) error {
	return c.publish(subjectBroadcast, BroadcastRequest{ChatID: c.broadcastChatID, Text: text, SentAt: time.Now().UTC()})
}

// DeliverFile publishes a file forwarding request.
func (c *Client) DeliverFile(_ context.Context, recipient int64, fileRef, caption string) error {
	return c.publish(subjectFiles, FileRequest{Recipient: recipient, FileRef: fileRef, Caption: caption, SentAt: time.Now().UTC()})
}

func (c *Client) publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}

	if err := c.conn.Publish(c.subject(subject), data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return nil
}

// SubscribeEvents attaches queue subscriptions for every inbound subject and
// dispatches decoded events to the handler until ctx is cancelled.
func (c *Client) SubscribeEvents(ctx context.Context, handler EventHandler) error {
	subs := make([]*nats.Subscription, 0, 4)

	add := func(subject string, cb nats.MsgHandler) error {
		sub, err := c.conn.QueueSubscribe(c.subject(subject), queueGroup, cb)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
		return nil
	}

	if err := add(subjectSubmissions, func(msg *nats.Msg) {
		var event SubmissionEvent
		if !c.decode(msg, &event) {
			return
		}
		handler.HandleSubmission(ctx, event)
	}); err != nil {
		return err
	}

	if err := add(subjectCommands, func(msg *nats.Msg) {
		var event CommandEvent
		if !c.decode(msg, &event) {
			return
		}
		handler.HandleCommand(ctx, event)
	}); err != nil {
		return err
	}

	if err := add(subjectButtons, func(msg *nats.Msg) {
		var event ButtonEvent
		if !c.decode(msg, &event) {
			return
		}
		handler.HandleButton(ctx, event)
	}); err != nil {
		return err
	}

	if err := add(subjectTexts, func(msg *nats.Msg) {
		var event TextEvent
		if !c.decode(msg, &event) {
			return
		}
		handler.HandleText(ctx, event)
	}); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		for _, sub := range subs {
			if err := sub.Unsubscribe(); err != nil {
				c.logger.Warn().Err(err).Msg("failed to unsubscribe bus subject")
			}
		}
	}()

	return nil
}

func (c *Client) decode(msg *nats.Msg, target interface{}) bool {
	if err := json.Unmarshal(msg.Data, target); err != nil {
		c.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable bus event")
		return false
	}
	return true
}

func (c *Client) subject(suffix string) string {
	if c.base == "" {
		return suffix
	}
	return c.base + "." + suffix
}
