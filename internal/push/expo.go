// Package push delivers notifications through the Expo push service.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/qarzdaftar/backend/internal/metrics"
)

// MaxBatch is the provider's limit of messages per request.
const MaxBatch = 100

type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]any
}

// Result summarises one Send call. It is informational only.
type Result struct {
	Sent          int `json:"sent"`
	Invalid       int `json:"invalid"`
	Failed        int `json:"failed"`
	Batches       int `json:"batches"`
	FailedBatches int `json:"failedBatches"`
}

type wireMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound"`
}

type ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type Client struct {
	url       string
	batchSize int
	http      *http.Client
	log       *slog.Logger
}

func NewClient(url string, batchSize int, timeout time.Duration, log *slog.Logger) *Client {
	if batchSize <= 0 || batchSize > MaxBatch {
		batchSize = MaxBatch
	}
	return &Client{
		url:       url,
		batchSize: batchSize,
		http:      &http.Client{Timeout: timeout},
		log:       log.With("component", "push"),
	}
}

// IsExpoPushToken checks the token shape Expo hands out to devices.
func IsExpoPushToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")) &&
		strings.HasSuffix(token, "]")
}

// Send drops malformed tokens, then posts the rest in chunks. A failed chunk
// is logged and the next one is still attempted; nothing is retried.
func (c *Client) Send(ctx context.Context, msgs []Message) Result {
	var res Result
	valid := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		if !IsExpoPushToken(m.Token) {
			c.log.Warn("invalid push token dropped", "token", redact(m.Token))
			res.Invalid++
			continue
		}
		valid = append(valid, wireMessage{To: m.Token, Title: m.Title, Body: m.Body, Data: m.Data, Sound: "default"})
	}
	metrics.PushMessagesTotal.WithLabelValues("invalid_token").Add(float64(res.Invalid))

	for start := 0; start < len(valid); start += c.batchSize {
		end := min(start+c.batchSize, len(valid))
		chunk := valid[start:end]
		res.Batches++

		rejected, err := c.post(ctx, chunk)
		if err != nil {
			c.log.Error("push batch failed", "size", len(chunk), "err", err)
			res.FailedBatches++
			res.Failed += len(chunk)
			metrics.PushBatchesTotal.WithLabelValues("error").Inc()
			metrics.PushMessagesTotal.WithLabelValues("failed").Add(float64(len(chunk)))
			continue
		}
		res.Sent += len(chunk) - rejected
		res.Failed += rejected
		metrics.PushBatchesTotal.WithLabelValues("ok").Inc()
		metrics.PushMessagesTotal.WithLabelValues("sent").Add(float64(len(chunk) - rejected))
		metrics.PushMessagesTotal.WithLabelValues("failed").Add(float64(rejected))
	}
	return res
}

// post sends one chunk and returns how many of its tickets came back with
// status "error".
func (c *Client) post(ctx context.Context, chunk []wireMessage) (int, error) {
	body, err := json.Marshal(chunk)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("expo: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var out struct {
		Data []ticket `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// delivered; only the receipt is unreadable
		c.log.Warn("push receipt unreadable", "err", err)
		return 0, nil
	}
	rejected := 0
	for i, t := range out.Data {
		if t.Status != "error" {
			continue
		}
		rejected++
		var to string
		if i < len(chunk) {
			to = redact(chunk[i].To)
		}
		c.log.Warn("push ticket error", "token", to, "message", t.Message, "details", t.Details)
	}
	return min(rejected, len(chunk)), nil
}

// redact keeps enough of a token to correlate log lines.
func redact(token string) string {
	const keep = 24
	r := []rune(token)
	if len(r) <= keep {
		return token
	}
	return string(r[:keep]) + "..."
}
