package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amorize/checkout-backend/pkg/config"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	accessTokenHeader = "access_token"
)

var (
	errAPIKeyRequired  = errors.New("asaas api key is required")
	errInvalidAsaasEnv = fmt.Errorf("asaas environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired  = errors.New("asaas logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://sandbox.asaas.com/api/v3",
	productionEnv: "https://api.asaas.com/v3",
}

// Client exposes Asaas primitives with centralized auth, logging, and error
// mapping. Asaas ships no Go SDK, so this is a thin wrapper over its REST API.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	environment string
	baseURL     string
	logger      *logger.Logger
}

// NewClient initializes the Asaas wrapper and validates the credentials.
// Missing configuration fails here, before any network call.
func NewClient(ctx context.Context, cfg config.AsaasConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "invalid asaas environment")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, errAPIKeyRequired, "asaas credentials missing")
	}

	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = baseURLs[env]
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		apiKey:      apiKey,
		environment: env,
		baseURL:     baseURL,
		logger:      logg,
	}

	logg.Info(ctx, fmt.Sprintf("asaas client initialized (%s)", env))
	return c, nil
}

// Environment reports the normalized Asaas environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidAsaasEnv
	}
}

// apiError mirrors the gateway's error payload: {"errors":[{"code","description"}]}.
type apiError struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

func (e apiError) description() string {
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		if desc := strings.TrimSpace(item.Description); desc != "" {
			parts = append(parts, desc)
		}
	}
	return strings.Join(parts, "; ")
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode asaas request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build asaas request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "asaas request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read asaas response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapAPIError(resp.StatusCode, raw, method, path)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode asaas response")
		}
	}
	return nil
}

func (c *Client) mapAPIError(status int, raw []byte, method, path string) error {
	var payload apiError
	_ = json.Unmarshal(raw, &payload)

	message := payload.description()
	if message == "" {
		message = fmt.Sprintf("asaas returned status %d", status)
	}

	return pkgerrors.New(pkgerrors.CodeGateway, message).WithDetails(map[string]any{
		"status": status,
		"method": method,
		"path":   path,
	})
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	all := map[string]any{"gateway": "asaas", "phase": phase, "operation": op}
	for k, v := range fields {
		all[k] = v
	}
	ctx = c.logger.WithFields(ctx, all)
	c.logger.Info(ctx, "asaas."+op)
}
