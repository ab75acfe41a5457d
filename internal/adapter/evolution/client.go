// Package evolution implements the gateway port for the
// instance-oriented WhatsApp gateway ("api2"). Instances are named per
// tenant; the QR payload arrives in the connect response.
package evolution

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

const providerName = "api2"

// webhookEvents is the event filter registered for inbound delivery.
var webhookEvents = []string{"MESSAGES_UPSERT"}

// Client talks to an Evolution-style instance gateway.
type Client struct {
	baseURL    string
	apiKey     string
	webhookURL string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates an instance-gateway client.
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
	// Webhook config survives pairing on this vendor.
	return gateway.Capabilities{PostPairWebhook: false}
}

// connectionState is the vendor's connection state response.
type connectionState struct {
	Instance struct {
		State string `json:"state"` // open | close | connecting
	} `json:"instance"`
}

// Status implements gateway.Gateway. A missing instance reports
// disconnected rather than an error.
func (c *Client) Status(ctx context.Context, tenantID string) (connection.Status, error) {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return connection.Status{State: connection.StateDisconnected}, err
	}

	data, code, err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+name, nil)
	if err != nil {
		return connection.Status{State: connection.StateDisconnected}, err
	}
	if code == http.StatusNotFound {
		return connection.Status{State: connection.StateDisconnected}, nil
	}
	if code >= 400 {
		return connection.Status{State: connection.StateDisconnected},
			fmt.Errorf("evolution status %d: %s", code, data)
	}

	var st connectionState
	if err := json.Unmarshal(data, &st); err != nil {
		return connection.Status{State: connection.StateDisconnected},
			fmt.Errorf("unmarshal connection state: %w", err)
	}
	return connection.Status{State: mapState(st.Instance.State)}, nil
}

// mapState maps the vendor state vocabulary onto connection states.
// The mapping is total: every unknown value is disconnected.
func mapState(state string) connection.State {
	switch state {
	case "open":
		return connection.StateConnected
	case "connecting":
		return connection.StateWaitingQR
	default:
		return connection.StateDisconnected
	}
}

// CreateSession creates the instance. The vendor reports an existing
// instance with an "already ..." error message; that is treated as
// success and pairing continues with a connect call.
func (c *Client) CreateSession(ctx context.Context, tenantID string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{
		"instanceName": name,
		"qrcode":       true,
		"integration":  "WHATSAPP-BAILEYS",
	})

	data, code, err := c.do(ctx, http.MethodPost, "/instance/create", body)
	if err != nil {
		return err
	}
	if code >= 400 {
		if strings.Contains(strings.ToLower(string(data)), "already") {
			return nil
		}
		return fmt.Errorf("evolution create instance %d: %s", code, data)
	}
	return nil
}

// RegisterWebhook points inbound-message delivery at the platform
// webhook endpoint.
func (c *Client) RegisterWebhook(ctx context.Context, tenantID string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{
		"webhook": map[string]any{
			"enabled":         true,
			"url":             c.webhookURL,
			"webhookByEvents": true,
			"events":          webhookEvents,
		},
	})

	data, code, err := c.do(ctx, http.MethodPost, "/webhook/set/"+name, body)
	if err != nil {
		return err
	}
	if code >= 400 {
		return fmt.Errorf("evolution register webhook %d: %s", code, data)
	}
	return nil
}

// FetchQR triggers a connect and returns the base64 QR payload from the
// response when the vendor has one ready.
func (c *Client) FetchQR(ctx context.Context, tenantID string) (connection.QRImage, error) {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return "", err
	}

	data, code, err := c.do(ctx, http.MethodGet, "/instance/connect/"+name, nil)
	if err != nil {
		return "", err
	}
	if code >= 400 {
		return "", gateway.ErrQRNotAvailable
	}

	var resp struct {
		Base64 string `json:"base64"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal connect response: %w", err)
	}
	if resp.Base64 != "" {
		return connection.QRFromBase64(resp.Base64), nil
	}
	// Older vendor versions return only the raw pairing payload.
	if resp.Code != "" {
		return connection.QRImage("raw:" + resp.Code), nil
	}
	return "", gateway.ErrQRNotAvailable
}

// SendText sends a plain text message through the instance.
func (c *Client) SendText(ctx context.Context, tenantID, phone, text string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]string{
		"number": phone,
		"text":   text,
	})

	data, code, err := c.do(ctx, http.MethodPost, "/message/sendText/"+name, body)
	if err != nil {
		return err
	}
	if code >= 400 {
		return fmt.Errorf("evolution send text %d: %s", code, data)
	}
	return nil
}

// Disconnect logs the instance out. Logging out a missing or
// already-closed instance succeeds.
func (c *Client) Disconnect(ctx context.Context, tenantID string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	data, code, err := c.do(ctx, http.MethodDelete, "/instance/logout/"+name, nil)
	if err != nil {
		return err
	}
	if code == http.StatusNotFound || code == http.StatusBadRequest {
		return nil
	}
	if code >= 400 {
		return fmt.Errorf("evolution disconnect %d: %s", code, data)
	}
	return nil
}

// ClearSession logs out and deletes the instance.
func (c *Client) ClearSession(ctx context.Context, tenantID string) error {
	name, err := connection.SessionName(tenantID)
	if err != nil {
		return err
	}

	if err := c.Disconnect(ctx, tenantID); err != nil {
		return err
	}

	data, code, err := c.do(ctx, http.MethodDelete, "/instance/delete/"+name, nil)
	if err != nil {
		return err
	}
	if code == http.StatusNotFound {
		return nil
	}
	if code >= 400 {
		return fmt.Errorf("evolution clear session %d: %s", code, data)
	}
	return nil
}

// do issues one HTTP call. Transport failures and 5xx responses count
// against the breaker; 4xx responses are vendor answers the callers
// branch on and do not trip it.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
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
		req.Header.Set("apikey", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
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
			return fmt.Errorf("evolution API error %d: %s", code, data)
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
