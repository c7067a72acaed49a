// Package modelclient is a narrow HTTP/WebSocket client for the external
// model service. It only knows the handful of endpoints the backend uses;
// prompt construction and model selection live on the other side.
package modelclient

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

	"commune/internal/observability"

	"github.com/gorilla/websocket"
)

// Sentiment is the label/score pair returned by the sentiment endpoint.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Client is the calling surface the services depend on. Tests swap in stubs.
type Client interface {
	AnalyzeSentiment(ctx context.Context, text string) (*Sentiment, error)
	Summarize(ctx context.Context, text string) (string, error)
	AutoTag(ctx context.Context, text string) ([]string, error)
	ClassifyImage(ctx context.Context, image []byte) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
	Chat(ctx context.Context, prompt string) (string, error)
	// ChatStream dials the model service's streaming endpoint and invokes
	// onChunk for every token batch until the stream closes. A non-nil
	// return from onChunk aborts the stream.
	ChatStream(ctx context.Context, prompt string, onChunk func(chunk string) error) error
}

type httpClient struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

// New returns a Client talking to the model service at baseURL. Every HTTP
// call is bounded by timeout; the service is slow to cold-start, so callers
// decide whether a failure is fatal or advisory.
func New(baseURL string, timeout time.Duration) Client {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
	}
}

func (c *httpClient) AnalyzeSentiment(ctx context.Context, text string) (*Sentiment, error) {
	var out Sentiment
	if err := c.post(ctx, "sentiment", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Summarize(ctx context.Context, text string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, "summarize", map[string]string{"text": text}, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (c *httpClient) AutoTag(ctx context.Context, text string) ([]string, error) {
	var out struct {
		Tags []string `json:"tags"`
	}
	if err := c.post(ctx, "auto-tag", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

func (c *httpClient) ClassifyImage(ctx context.Context, image []byte) (string, error) {
	start := time.Now()
	defer observability.ObserveModelCall("classify", start)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(image))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		observability.ModelCallErrors.WithLabelValues("classify", "transport").Inc()
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.ModelCallErrors.WithLabelValues("classify", "status").Inc()
		return "", fmt.Errorf("model service returned %d for classify", resp.StatusCode)
	}

	var out struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Label, nil
}

func (c *httpClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := c.post(ctx, "embedding", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

func (c *httpClient) Chat(ctx context.Context, prompt string) (string, error) {
	var out struct {
		Reply string `json:"reply"`
	}
	if err := c.post(ctx, "chat", map[string]string{"prompt": prompt}, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (c *httpClient) ChatStream(ctx context.Context, prompt string, onChunk func(chunk string) error) error {
	start := time.Now()
	defer observability.ObserveModelCall("chat_stream", start)

	wsURL, err := c.wsEndpoint("chat/ws")
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		observability.ModelCallErrors.WithLabelValues("chat_stream", "dial").Inc()
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"prompt": prompt}); err != nil {
		return err
	}

	for {
		var msg struct {
			Chunk string `json:"chunk"`
			Done  bool   `json:"done"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || err == io.EOF {
				return nil
			}
			observability.ModelCallErrors.WithLabelValues("chat_stream", "read").Inc()
			return err
		}
		if msg.Chunk != "" {
			if err := onChunk(msg.Chunk); err != nil {
				return err
			}
		}
		if msg.Done {
			return nil
		}
	}
}

func (c *httpClient) post(ctx context.Context, endpoint string, payload any, out any) error {
	start := time.Now()
	defer observability.ObserveModelCall(endpoint, start)

	ctx, span := observability.TraceModelCall(ctx, endpoint)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		observability.ModelCallErrors.WithLabelValues(endpoint, "transport").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.ModelCallErrors.WithLabelValues(endpoint, "status").Inc()
		return fmt.Errorf("model service returned %d for %s", resp.StatusCode, endpoint)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// wsEndpoint converts the HTTP base URL into its ws:// (or wss://) form.
func (c *httpClient) wsEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + endpoint
	return u.String(), nil
}
