// Package crm is the HTTP client for the surrounding CRM's internal API. It
// implements every collaborator interface the engine consumes: contact
// lookup, operation execution, outbound sends and template resolution.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/protocol"
	"github.com/onsell/automation/pkg/tenant"
)

const defaultTimeout = 30 * time.Second

// ErrNotFound indicates the CRM has no record for the requested id.
var ErrNotFound = errors.New("crm record not found")

// Client talks to the CRM internal API. The active tenant travels as a
// request header so the CRM partitions data the same way the engine does.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.With("module", "crm_client"),
	}
}

func (c *Client) FindContact(ctx context.Context, id string) (*models.Contact, error) {
	var contact models.Contact

	err := c.get(ctx, "/internal/contacts/"+id, &contact)
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

func (c *Client) FindOpportunity(ctx context.Context, id string) (*models.Opportunity, error) {
	var opportunity models.Opportunity

	err := c.get(ctx, "/internal/opportunities/"+id, &opportunity)
	if err != nil {
		return nil, err
	}

	return &opportunity, nil
}

func (c *Client) ListContacts(ctx context.Context) ([]*models.Contact, error) {
	var contacts []*models.Contact

	err := c.get(ctx, "/internal/contacts", &contacts)
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

func (c *Client) Execute(ctx context.Context, operation string, params map[string]any, contact *models.Contact) (map[string]any, error) {
	request := map[string]any{
		"operation":  operation,
		"params":     params,
		"contact_id": contact.ID,
	}

	var result map[string]any

	err := c.post(ctx, "/internal/operations", request, &result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) Send(ctx context.Context, req protocol.SendRequest) (*protocol.SendResult, error) {
	request := map[string]any{
		"contact_id": req.ContactID,
		"channel":    req.Channel,
		"content":    req.Content,
		"media_url":  req.MediaURL,
	}

	var response struct {
		ProviderMessageID string    `json:"provider_message_id"`
		Timestamp         time.Time `json:"timestamp"`
	}

	err := c.post(ctx, "/internal/messages", request, &response)
	if err != nil {
		return nil, err
	}

	return &protocol.SendResult{
		ProviderMessageID: response.ProviderMessageID,
		Timestamp:         response.Timestamp,
	}, nil
}

func (c *Client) FindTemplate(ctx context.Context, id string) (*protocol.MessageTemplate, error) {
	var response struct {
		ID       string `json:"id"`
		Content  string `json:"content"`
		MediaURL string `json:"media_url"`
	}

	err := c.get(ctx, "/internal/templates/"+id, &response)
	if err != nil {
		return nil, err
	}

	return &protocol.MessageTemplate{
		ID:       response.ID,
		Content:  response.Content,
		MediaURL: response.MediaURL,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	return c.do(ctx, http.MethodGet, path, nil, target)
}

func (c *Client) post(ctx context.Context, path string, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, payload, target)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, target any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if tenantID := tenant.FromContext(ctx); tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, responseBody)
	}

	if target == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(target)
	if err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}
