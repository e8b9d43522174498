package client

// http_client.go talks to the relay's admin API.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"vrrelay/internal/admin"
	"vrrelay/internal/audit"
	"vrrelay/internal/relay"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// set token for HTTP client
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// do sends body (if any) as JSON and decodes a JSON reply into out when the
// status matches want.
func (c *HTTPClient) do(method, path string, body, out any, want int) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(response.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error, response.Status)
		}
		return fmt.Errorf("%s %s failed with status: %s", method, path, response.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}

func (c *HTTPClient) Login(username, password string) (*admin.TokenResponse, error) {
	var result admin.TokenResponse
	req := admin.LoginRequest{Username: username, Password: password}
	if err := c.do(http.MethodPost, "/auth/login", req, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Health() (*admin.HealthResponse, error) {
	var result admin.HealthResponse
	if err := c.do(http.MethodGet, "/healthz", nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Clients() ([]relay.ClientInfo, error) {
	var result struct {
		Clients []relay.ClientInfo `json:"clients"`
	}
	if err := c.do(http.MethodGet, "/clients", nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Clients, nil
}

func (c *HTTPClient) EventCounts() (map[string]int64, error) {
	var result struct {
		Events map[string]int64 `json:"events"`
	}
	if err := c.do(http.MethodGet, "/stats/events", nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Events, nil
}

func (c *HTTPClient) Sessions(limit int) ([]audit.Session, error) {
	var result struct {
		Sessions []audit.Session `json:"sessions"`
	}
	path := "/sessions?limit=" + strconv.Itoa(limit)
	if err := c.do(http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Sessions, nil
}

func (c *HTTPClient) InjectEvent(req admin.EventRequest) error {
	return c.do(http.MethodPost, "/admin/events", req, nil, http.StatusAccepted)
}

func (c *HTTPClient) Shutdown() error {
	return c.do(http.MethodPost, "/admin/shutdown", nil, nil, http.StatusAccepted)
}
