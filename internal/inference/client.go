// Package inference sends a screenshot and prompt to the remote vision
// model and streams back the textual answer. The streaming call is the one
// unbounded blocking point in a task session, so an active-call slot lets an
// unrelated goroutine abort it on cancellation.
package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rbright/echosight/internal/config"
)

// ErrCanceled reports that the streaming call was aborted by the user.
var ErrCanceled = errors.New("inference canceled")

// emptyResponseText is narrated when the model streams back nothing usable.
const emptyResponseText = "No description returned."

// Client issues vision requests. A fresh API client is built per request so
// no connection state outlives a task session.
type Client struct {
	cfg    config.InferenceConfig
	logger *slog.Logger

	mu          sync.Mutex
	abortActive context.CancelFunc
}

// New constructs a vision inference client.
func New(cfg config.InferenceConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{cfg: cfg, logger: logger}
}

// Describe asks the model to describe the screenshot for a blind user.
func (c *Client) Describe(ctx context.Context, apiKey string, image []byte) (string, error) {
	return c.query(ctx, apiKey, image, c.cfg.DescribePrompt)
}

// Ask answers a follow-up question about the screenshot.
func (c *Client) Ask(ctx context.Context, apiKey string, image []byte, question string) (string, error) {
	return c.query(ctx, apiKey, image, c.cfg.FollowUpPreface+" "+question)
}

// Abort cancels the in-flight streaming call, if any. Safe to call from any
// goroutine at any time.
func (c *Client) Abort() {
	c.mu.Lock()
	abort := c.abortActive
	c.mu.Unlock()
	if abort != nil {
		abort()
	}
}

func (c *Client) query(ctx context.Context, apiKey string, image []byte, prompt string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("inference requires an API key")
	}

	queryCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.abortActive = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.abortActive = nil
		c.mu.Unlock()
	}()

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	}
	if c.cfg.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.cfg.MaxOutputTokens))
	}

	var answer strings.Builder
	stream := client.Chat.Completions.NewStreaming(queryCtx, params)
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			answer.WriteString(choice.Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		if queryCtx.Err() != nil {
			c.logger.Info("inference stream aborted")
			return "", ErrCanceled
		}
		return "", fmt.Errorf("vision model stream: %w", err)
	}
	if queryCtx.Err() != nil {
		return "", ErrCanceled
	}

	text := strings.TrimSpace(answer.String())
	if text == "" {
		return emptyResponseText, nil
	}
	return text, nil
}
