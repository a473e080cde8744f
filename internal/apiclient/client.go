package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/infrastructure/influxdb"
	"github.com/nerrad567/gohome/internal/plugin"
)

// DefaultTimeout bounds a request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// apiPrefix is the path prefix of every REST endpoint.
const apiPrefix = "/api"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Error is a non-2xx response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: server returned %d", e.Status)
	}
	return fmt.Sprintf("apiclient: server returned %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client calls the REST API rooted at a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL (scheme and host, without
// the /api prefix). A timeout of zero uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ============================================================================
// Devices
// ============================================================================

// ListDevices returns every registered device.
func (c *Client) ListDevices(ctx context.Context) ([]device.Device, error) {
	var devices []device.Device
	if err := c.do(ctx, http.MethodGet, "/devices", nil, &devices); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devices, nil
}

// GetDevice returns one device.
func (c *Client) GetDevice(ctx context.Context, id string) (*device.Device, error) {
	var dev device.Device
	if err := c.do(ctx, http.MethodGet, "/devices/"+url.PathEscape(id), nil, &dev); err != nil {
		return nil, fmt.Errorf("getting device %s: %w", id, err)
	}
	return &dev, nil
}

// CreateDevice registers a device.
func (c *Client) CreateDevice(ctx context.Context, req device.CreateRequest) (*device.Device, error) {
	var dev device.Device
	if err := c.do(ctx, http.MethodPost, "/devices", req, &dev); err != nil {
		return nil, fmt.Errorf("creating device: %w", err)
	}
	return &dev, nil
}

// DeleteDevice removes a device.
func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/devices/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("deleting device %s: %w", id, err)
	}
	return nil
}

// LinkAdapter links a device to a connected adapter.
func (c *Client) LinkAdapter(ctx context.Context, deviceID, adapterID string) (*device.Device, error) {
	return c.adapterLink(ctx, http.MethodPost, deviceID, adapterID)
}

// UnlinkAdapter removes the link between a device and an adapter.
func (c *Client) UnlinkAdapter(ctx context.Context, deviceID, adapterID string) (*device.Device, error) {
	return c.adapterLink(ctx, http.MethodDelete, deviceID, adapterID)
}

func (c *Client) adapterLink(ctx context.Context, method, deviceID, adapterID string) (*device.Device, error) {
	path := "/devices/" + url.PathEscape(deviceID) + "/adapters/" + url.PathEscape(adapterID)
	var dev device.Device
	if err := c.do(ctx, method, path, nil, &dev); err != nil {
		return nil, fmt.Errorf("updating link %s/%s: %w", deviceID, adapterID, err)
	}
	return &dev, nil
}

// ListProtocols returns the protocol catalogue.
func (c *Client) ListProtocols(ctx context.Context) ([]device.Protocol, error) {
	var protocols []device.Protocol
	if err := c.do(ctx, http.MethodGet, "/protocols", nil, &protocols); err != nil {
		return nil, fmt.Errorf("listing protocols: %w", err)
	}
	return protocols, nil
}

// ============================================================================
// Plugins
// ============================================================================

// pluginPath returns the collection path for plugins of type t.
func pluginPath(t plugin.Type) (string, error) {
	switch t {
	case plugin.TypeAdapter:
		return "/adapters", nil
	case plugin.TypeScanner:
		return "/scanners", nil
	default:
		return "", fmt.Errorf("apiclient: unknown plugin type %q", t)
	}
}

// ListPlugins returns the connected plugins of type t.
func (c *Client) ListPlugins(ctx context.Context, t plugin.Type) ([]plugin.Plugin, error) {
	path, err := pluginPath(t)
	if err != nil {
		return nil, err
	}
	var plugins []plugin.Plugin
	if err := c.do(ctx, http.MethodGet, path, nil, &plugins); err != nil {
		return nil, fmt.Errorf("listing %s: %w", strings.TrimPrefix(path, "/"), err)
	}
	return plugins, nil
}

// StartPlugin asks plugin id of type t to start and waits for its answer.
func (c *Client) StartPlugin(ctx context.Context, t plugin.Type, id string) error {
	return c.pluginCommand(ctx, t, "start", id)
}

// StopPlugin asks plugin id of type t to stop and waits for its answer.
func (c *Client) StopPlugin(ctx context.Context, t plugin.Type, id string) error {
	return c.pluginCommand(ctx, t, "stop", id)
}

func (c *Client) pluginCommand(ctx context.Context, t plugin.Type, verb, id string) error {
	path, err := pluginPath(t)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, path+"/"+verb+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("%s %s: %w", verb, id, err)
	}
	return nil
}

// ListWidgets returns the widgets declared by connected plugins.
func (c *Client) ListWidgets(ctx context.Context) ([]plugin.Widget, error) {
	var widgets []plugin.Widget
	if err := c.do(ctx, http.MethodGet, "/widgets", nil, &widgets); err != nil {
		return nil, fmt.Errorf("listing widgets: %w", err)
	}
	return widgets, nil
}

// ============================================================================
// Data sources
// ============================================================================

// CapabilityHistory returns the recorded values of one device capability.
func (c *Client) CapabilityHistory(ctx context.Context, deviceID, capability string) (*influxdb.History, error) {
	path := "/history/device/" + url.PathEscape(deviceID) + "/capabilities/" + url.PathEscape(capability)
	var h influxdb.History
	if err := c.do(ctx, http.MethodGet, path, nil, &h); err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	return &h, nil
}

// GetJSON fetches an absolute URL, such as a bound widget data source,
// and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, v)
}

// do sends a request to an /api path with an optional JSON body and
// decodes the response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	// A partial body is still good enough for the message.
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(data, &body) == nil && body.Error.Code != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
