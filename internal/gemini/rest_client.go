package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type restClient struct {
	host   string
	key    string
	client *http.Client

	// Chat history per session id. The mutex covers bubbletea commands,
	// which run off the event loop.
	mu       sync.Mutex
	sessions map[string][]content
}

func (c *restClient) Name() string {
	return "Gemini"
}

func (c *restClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	return c.generateContent(ctx, model, []content{userContent(prompt)})
}

// StartSession mints a new session id. The vendor endpoint is stateless, so
// no remote call happens here; the id is opaque to every caller.
func (c *restClient) StartSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	c.mu.Lock()
	c.sessions[id] = nil
	c.mu.Unlock()
	return id, nil
}

func (c *restClient) SendMessage(ctx context.Context, sessionID, message, model string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message cannot be empty")
	}
	c.mu.Lock()
	history, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}

	turns := append(append([]content(nil), history...), userContent(message))
	reply, err := c.generateContent(ctx, model, turns)
	if err != nil {
		return "", err
	}

	// History grows only after the API confirms, so a failed call leaves the
	// session exactly as it was.
	c.mu.Lock()
	if _, live := c.sessions[sessionID]; live {
		c.sessions[sessionID] = append(turns, modelContent(reply))
	}
	c.mu.Unlock()
	return reply, nil
}

func (c *restClient) EndSession(ctx context.Context, sessionID string) (string, error) {
	c.mu.Lock()
	_, ok := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}
	return fmt.Sprintf("Session %s ended.", sessionID), nil
}

func (c *restClient) generateContent(ctx context.Context, model string, turns []content) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	payload := map[string]any{"contents": turns}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.host, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s", apiErrorMessage(resp.Status, body))
	}

	var parsed struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	var b strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

// apiErrorMessage prefers the API's own error text so the user sees the
// vendor message unmodified.
func apiErrorMessage(status string, body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return fmt.Sprintf("gemini API error: %s", status)
}

func userContent(text string) content {
	return content{Role: "user", Parts: []part{{Text: text}}}
}

func modelContent(text string) content {
	return content{Role: "model", Parts: []part{{Text: text}}}
}
