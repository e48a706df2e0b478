// Package gemini talks to Google's Gemini generation API. It exposes a
// single-turn Generate call plus session-scoped chat calls; the vendor
// endpoint itself is stateless, so chat history lives inside the client and
// sessions are addressed by locally minted opaque ids.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultModel is used when the configuration names no model.
const DefaultModel = "gemini-2.0-flash"

const defaultHost = "https://generativelanguage.googleapis.com"

const defaultHTTPTimeout = 2 * time.Minute

// Client exposes the four remote operations the registry and the TUI use.
// Error strings coming back from the API are passed through verbatim.
type Client interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
	StartSession(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, sessionID, message, model string) (string, error)
	EndSession(ctx context.Context, sessionID string) (string, error)
	Name() string
}

// Config describes how to build a Client.
type Config struct {
	// KeySource is either a file path (first non-empty line holds the key)
	// or the name of an environment variable.
	KeySource  string
	Endpoint   string
	HTTPClient *http.Client
}

// New builds an HTTP-backed Client, resolving the API key up front.
func New(cfg Config) (Client, error) {
	key, err := ResolveKey(cfg.KeySource)
	if err != nil {
		return nil, err
	}
	host := strings.TrimRight(cfg.Endpoint, "/")
	if host == "" {
		host = defaultHost
	}
	return &restClient{
		host:     host,
		key:      key,
		client:   pickHTTPClient(cfg.HTTPClient),
		sessions: map[string][]content{},
	}, nil
}

// ResolveKey turns an API-key source into the key itself. A readable file
// wins over an environment variable of the same name.
func ResolveKey(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", fmt.Errorf("api key source is empty")
	}
	if data, err := os.ReadFile(source); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if key := strings.TrimSpace(line); key != "" {
				return key, nil
			}
		}
		return "", fmt.Errorf("api key file %s is empty", source)
	}
	if key := strings.TrimSpace(os.Getenv(source)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no api key found at %q (not a readable file, and the environment variable is unset)", source)
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Generation calls routinely run long; rely on the caller's context for
	// cancellation beyond this ceiling.
	return &http.Client{Timeout: defaultHTTPTimeout}
}
