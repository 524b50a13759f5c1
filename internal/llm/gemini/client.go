package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KimiAn12/StartUpIdea/internal/llm"
)

const provider = "gemini"

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewClient constructs a Gemini client. endpoint is the full generateContent URL.
func NewClient(apiKey, endpoint string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("GEMINI_API_URL invalid: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends prompt as a single user turn and returns the first candidate's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: 0.1, MaxOutputTokens: 2048},
	})
	if err != nil {
		return "", err
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the API key; never surface it.
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return "", llm.TransportError(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.TransportError(provider, err)
	}

	var parsed generateResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode >= 400 {
		msg := llm.TrimBody(body)
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", &llm.ProviderError{Provider: provider, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", llm.Malformed(provider, "response is not JSON")
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", &llm.ProviderError{Provider: provider, Status: resp.StatusCode, Message: "prompt blocked: " + parsed.PromptFeedback.BlockReason}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", llm.Malformed(provider, "response has no candidates")
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", llm.Malformed(provider, "response text is empty")
	}
	return text, nil
}

var _ llm.Client = (*Client)(nil)
