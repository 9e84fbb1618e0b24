// Package ollama implements a minimal client for the Ollama generate API.
//
// Two call shapes are supported: Generate, a blocking single-shot completion
// used by the startup warmup, and GenerateStream, which consumes the
// newline-delimited JSON stream incrementally and hands each text fragment to
// a callback. Retry policy, if any, belongs to the caller.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Decoding options sent with every generate request.
const (
	temperature   = 0.2
	topP          = 0.9
	contextWindow = 8192
)

// generateTimeout bounds non-streaming calls. Streaming calls have no
// client-side timeout; their lifetime is the request context.
const generateTimeout = 180 * time.Second

// maxStreamLine caps a single NDJSON line from the backend.
const maxStreamLine = 1 << 20

// Client talks to one Ollama server. Safe for concurrent use.
type Client struct {
	baseURL string
	model   string
	httpc   *http.Client
	streamc *http.Client
	logger  *slog.Logger
}

// New creates a Client for the given base URL (trailing slash tolerated)
// and generation model.
func New(baseURL, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpc:   &http.Client{Timeout: generateTimeout},
		streamc: &http.Client{}, // no timeout; canceled via context
		logger:  logger,
	}
}

type options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumCtx      int     `json:"num_ctx"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

// chunk is one incremental unit of the generate stream.
type chunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *Client) newRequest(ctx context.Context, prompt string, stream bool) (*http.Request, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: stream,
		Options: options{
			Temperature: temperature,
			TopP:        topP,
			NumCtx:      contextWindow,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Generate runs a single non-streaming completion and returns the trimmed
// response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req, err := c.newRequest(ctx, prompt, false)
	if err != nil {
		return "", err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generate: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}

// GenerateStream opens a streaming completion and calls fn once per non-empty
// text fragment, in arrival order. It returns nil when the backend signals
// completion or the stream ends, and the callback's error if fn fails.
// Unparseable lines are skipped, matching the backend's keep-alive framing.
func (c *Client) GenerateStream(ctx context.Context, prompt string, fn func(delta string) error) error {
	req, err := c.newRequest(ctx, prompt, true)
	if err != nil {
		return err
	}

	resp, err := c.streamc.Do(req)
	if err != nil {
		return fmt.Errorf("opening generate stream: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ch chunk
		if err := json.Unmarshal(line, &ch); err != nil {
			c.logger.Debug("skipping unparseable stream line", "error", err)
			continue
		}

		if ch.Response != "" {
			if err := fn(ch.Response); err != nil {
				return err
			}
		}
		if ch.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		// Prefer the context error so cancellation is distinguishable
		// from a broken upstream.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("reading generate stream: %w", err)
	}

	// Stream ended without an explicit done marker; treat as completion.
	return nil
}

// checkStatus turns a non-2xx response into an error carrying a bounded
// amount of the body for diagnostics.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("generate returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
}

// Model reports the configured generation model identifier.
func (c *Client) Model() string { return c.model }
