package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"relistapi/internal/config"
)

// OpenAIClient implements Adapter against an OpenAI-compatible
// chat-completions endpoint. Token usage reported by the service is
// accumulated against a fixed budget; once spent, every further Propose
// returns ErrBudgetExceeded without touching the network.
type OpenAIClient struct {
	cfg    config.AssistConfig
	client *http.Client

	mu         sync.Mutex
	tokensUsed int64
}

// NewOpenAIClient constructs the adapter. The HTTP transport is traced via
// otelhttp; the per-call timeout comes from config and is enforced with a
// context deadline so an abandoned call cannot block the caller.
func NewOpenAIClient(cfg config.AssistConfig) *OpenAIClient {
	return &OpenAIClient{
		cfg: cfg,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

var _ Adapter = (*OpenAIClient)(nil)

// Enabled reports whether the adapter is configured for use.
func (c *OpenAIClient) Enabled() bool {
	return c.cfg.Enabled && c.cfg.APIKey != ""
}

// TokensUsed returns the running usage counter.
func (c *OpenAIClient) TokensUsed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokensUsed
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Propose asks the service for one reworded candidate. The budget is checked
// before the call, not only after, so a spent budget costs nothing.
func (c *OpenAIClient) Propose(ctx context.Context, req ProposeRequest) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	c.mu.Lock()
	if c.tokensUsed >= c.cfg.TokenBudget {
		c.mu.Unlock()
		return "", ErrBudgetExceeded
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You reword marketplace listing text. Reply with the reworded text only, no quotes, no commentary."},
			{Role: "user", Content: buildPrompt(req)},
		},
		MaxTokens: 500, // keeps per-call cost bounded
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrServiceError, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrServiceError, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrServiceError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrServiceError, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrServiceError, err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrServiceError, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrServiceError)
	}

	c.mu.Lock()
	c.tokensUsed += out.Usage.TotalTokens
	c.mu.Unlock()

	candidate := strings.TrimSpace(out.Choices[0].Message.Content)
	if c.cfg.MaxChars > 0 {
		// Cut on rune boundaries; a byte cut can split a multi-byte character.
		if r := []rune(candidate); len(r) > c.cfg.MaxChars {
			candidate = string(r[:c.cfg.MaxChars])
		}
	}
	return candidate, nil
}

func buildPrompt(req ProposeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reword the following text so it reads naturally but is not identical to the original. Keep it under %d characters. Do not repeat words awkwardly.\n\n", req.MaxLength)
	fmt.Fprintf(&b, "Text: %s\n", req.Text)
	if len(req.Exclude) > 0 {
		b.WriteString("\nIt must differ from every one of these previously used versions:\n")
		// cap the hint so the prompt stays small
		hints := req.Exclude
		if len(hints) > 20 {
			hints = hints[len(hints)-20:]
		}
		for _, h := range hints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	return b.String()
}
