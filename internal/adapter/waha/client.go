// Package waha implements the gateway port for the session-oriented
// WhatsApp gateway ("api1"). Sessions are named per tenant and carry
// their webhook config inline.
package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TheLucianoBraga/zapgestor/internal/domain/connection"
	"github.com/TheLucianoBraga/zapgestor/internal/port/gateway"
	"github.com/TheLucianoBraga/zapgestor/internal/resilience"
)

const providerName = "api1"

// webhookEvents is the event filter registered for inbound delivery.
var webhookEvents = []string{"message"}

// Client talks to a WAHA-style session gateway.
type Client struct {
	baseURL    string
	apiKey     string
	webhookURL string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a session-gateway client.
func NewClient(baseURL, apiKey, webhookURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

func (c *Client) Name() string { return providerName }

func (c *Client) Capabilities() gateway.Capabilities {
	// Pairing resets the session webhook config on this vendor.
	return gateway.Capabilities{PostPairWebhook: true}
}

// sessionInfo is the vendor's session status response.
type sessionInfo struct {
	Status string `json:"status"` // STOPPED | STARTING | SCAN_QR_CODE | WORKING | FAILED
	Me     *struct {
		ID       string `json:"id"`
		PushName string `json:"pushName"`
	} `json:"me"`
}

// webhookConfig is the vendor's webhook registration shape.
type webhookConfig struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// Status implements gateway.Gateway. A missing session reports
// disconnected rather than an error so fresh tenants poll quietly.
func (c *Client) Status(ctx context.Context, tenantID string) (connection.Status, error) {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return connection.Status{State: connection.StateDisconnected}, err
	}

	data, code, err := c.do(ctx, http.MethodGet, "/api/sessions/"+name, nil, "")
	if err != nil {
		return connection.Status{State: connection.StateDisconnected}, err
	}
	if code == http.StatusNotFound {
		return connection.Status{State: connection.StateDisconnected}, nil
	}
	if code >= 400 {
		return connection.Status{State: connection.StateDisconnected},
			fmt.Errorf("waha status %d: %s", code, data)
	}

	var info sessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return connection.Status{State: connection.StateDisconnected},
			fmt.Errorf("unmarshal session: %w", err)
	}
	return mapStatus(info), nil
}

// mapStatus maps the vendor status vocabulary onto connection states.
// The mapping is total: every unknown value is disconnected.
func mapStatus(info sessionInfo) connection.Status {
	switch info.Status {
	case "WORKING":
		st := connection.Status{State: connection.StateConnected}
		if info.Me != nil {
			st.Phone, _, _ = strings.Cut(info.Me.ID, "@")
			st.DisplayName = info.Me.PushName
		}
		return st
	case "SCAN_QR_CODE":
		return connection.Status{State: connection.StateWaitingQR}
	default:
		return connection.Status{State: connection.StateDisconnected}
	}
}

// CreateSession creates and starts the session with the webhook config
// inline. The vendor answers 422 when the session already exists; that
// falls through to a plain start call instead of failing.
func (c *Client) CreateSession(ctx context.Context, tenantID string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{
		"name":  name,
		"start": true,
		"config": map[string]any{
			"webhooks": []webhookConfig{{URL: c.webhookURL, Events: webhookEvents}},
		},
	})

	data, code, err := c.do(ctx, http.MethodPost, "/api/sessions", body, "")
	if err != nil {
		return err
	}
	if code == http.StatusUnprocessableEntity {
		// Already exists: start it instead.
		data, code, err = c.do(ctx, http.MethodPost, "/api/sessions/"+name+"/start", nil, "")
		if err != nil {
			return err
		}
	}
	if code >= 400 {
		return fmt.Errorf("waha create session %d: %s", code, data)
	}
	return nil
}

// RegisterWebhook updates the session's webhook config. The update
// endpoint is also used post-pairing, since pairing can reset it.
func (c *Client) RegisterWebhook(ctx context.Context, tenantID string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{
		"config": map[string]any{
			"webhooks": []webhookConfig{{URL: c.webhookURL, Events: webhookEvents}},
		},
	})

	data, code, err := c.do(ctx, http.MethodPut, "/api/sessions/"+name, body, "")
	if err != nil {
		return err
	}
	if code >= 400 {
		return fmt.Errorf("waha register webhook %d: %s", code, data)
	}
	return nil
}

// FetchQR requests the pairing QR as a PNG and wraps it in a data URI.
func (c *Client) FetchQR(ctx context.Context, tenantID string) (connection.QRImage, error) {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return "", err
	}

	data, code, err := c.do(ctx, http.MethodGet, "/api/"+name+"/auth/qr", nil, "image/png")
	if err != nil {
		return "", err
	}
	if code >= 400 {
		// Session not in scan state yet.
		return "", gateway.ErrQRNotAvailable
	}
	if len(data) == 0 {
		return "", gateway.ErrQRNotAvailable
	}
	return connection.QRFromPNG(data), nil
}

// SendText sends a plain text message through the session.
func (c *Client) SendText(ctx context.Context, tenantID, phone, text string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]string{
		"session": name,
		"chatId":  phone + "@c.us",
		"text":    text,
	})

	data, code, err := c.do(ctx, http.MethodPost, "/api/sendText", body, "")
	if err != nil {
		return err
	}
	if code >= 400 {
		return fmt.Errorf("waha send text %d: %s", code, data)
	}
	return nil
}

// Disconnect stops the session. Stopping a missing or already-stopped
// session succeeds.
func (c *Client) Disconnect(ctx context.Context, tenantID string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	data, code, err := c.do(ctx, http.MethodPost, "/api/sessions/"+name+"/stop", nil, "")
	if err != nil {
		return err
	}
	if code == http.StatusNotFound || code == http.StatusUnprocessableEntity {
		return nil
	}
	if code >= 400 {
		return fmt.Errorf("waha disconnect %d: %s", code, data)
	}
	return nil
}

// ClearSession stops and deletes the session so the next pairing starts
// from scratch.
func (c *Client) ClearSession(ctx context.Context, tenantID string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	if err := c.Disconnect(ctx, tenantID); err != nil {
		return err
	}

	data, code, err := c.do(ctx, http.MethodDelete, "/api/sessions/"+name, nil, "")
	if err != nil {
		return err
	}
	if code == http.StatusNotFound {
		return nil
	}
	if code >= 400 {
		return fmt.Errorf("waha clear session %d: %s", code, data)
	}
	return nil
}

// do issues one HTTP call. Transport failures and 5xx responses count
// against the breaker; 4xx responses are vendor answers the callers
// branch on and do not trip it.
func (c *Client) do(ctx context.Context, method, path string, body []byte, accept string) ([]byte, int, error) {
	var (
		data []byte
		code int
	)
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-Api-Key", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		code = resp.StatusCode

		if code >= 500 {
			return fmt.Errorf("waha API error %d: %s", code, data)
		}
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, code, err
	}
	return data, code, nil
}
