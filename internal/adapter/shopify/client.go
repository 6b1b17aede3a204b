package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AakashRadical/rg-bulk-editor/internal/port"
)

// Config carries the Admin API coordinates. BaseURL is normally derived from
// Shop and only overridden in tests.
type Config struct {
	Shop        string
	AccessToken string
	APIVersion  string
	BaseURL     string
}

// Client talks to the Shopify Admin GraphQL API. It implements
// port.CatalogAPI.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.Shop
	}
	return &Client{
		endpoint: fmt.Sprintf("%s/admin/api/%s/graphql.json", base, cfg.APIVersion),
		token:    cfg.AccessToken,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// graphql posts one query/mutation and decodes the data payload into out.
// HTTP 429 and the THROTTLED extension code both surface as
// port.ErrThrottled so the retry policy can distinguish them.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("status 429: %w", port.ErrThrottled)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	var envelope gqlResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, ge := range envelope.Errors {
			if ge.Extensions.Code == "THROTTLED" {
				return fmt.Errorf("%s: %w", ge.Message, port.ErrThrottled)
			}
			msgs = append(msgs, ge.Message)
		}
		return fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to parse data: %w", err)
		}
	}
	return nil
}

type rawUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func userErrorsFrom(op string, raw []rawUserError) error {
	if len(raw) == 0 {
		return nil
	}
	errs := make([]port.UserError, 0, len(raw))
	for _, ue := range raw {
		errs = append(errs, port.UserError{
			Field:   strings.Join(ue.Field, "."),
			Message: ue.Message,
		})
	}
	return &port.UserErrorsError{Op: op, Errors: errs}
}

// Ids arrive either as bare numerics from the edit UI or as full gids from
// GraphQL responses; the API only accepts the gid form.
func gid(resource, id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/" + resource + "/" + id
}

type quantityField struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func availableQuantity(quantities []quantityField) int {
	for _, q := range quantities {
		if q.Name == "available" {
			return q.Quantity
		}
	}
	return 0
}
