package chat

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"
	"github.com/go-playground/validator/v10"
)

type httpClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Client covers the conversation REST surface. Sends always travel here,
// request/response, regardless of which stream delivers the inbound side.
type Client struct {
	http     httpClient
	validate *validator.Validate
}

func NewClient(http httpClient) (*Client, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &Client{
		http:     http,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Conversations lists the user's threads.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var conversations []Conversation
	if err := c.http.Get(ctx, "/conversations/", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// History fetches the full message list for one conversation.
func (c *Client) History(ctx context.Context, conversationID int64) ([]Message, error) {
	var messages []Message
	path := fmt.Sprintf("/conversations/%d/messages/", conversationID)
	if err := c.http.Get(ctx, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

type sendInput struct {
	Conversation int64  `json:"conversation" validate:"required,gt=0"`
	Content      string `json:"content" validate:"required"`
}

// Send posts a message and returns the created record so the caller can
// append it locally without waiting for the next poll or push. Empty
// content never leaves the client.
func (c *Client) Send(ctx context.Context, conversationID int64, content string) (*Message, error) {
	input := sendInput{
		Conversation: conversationID,
		Content:      strings.TrimSpace(content),
	}
	if err := c.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "message content is required")
	}

	var created Message
	if err := c.http.Post(ctx, "/messages/", input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
