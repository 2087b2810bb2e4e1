// Package protocol defines the interfaces the engine consumes from the
// surrounding CRM: contact lookup, outbound channel sends, action operations
// and message templates. The engine never owns these; controllers and channel
// adapters implement them.
package protocol

import (
	"context"
	"time"

	"github.com/onsell/automation/pkg/models"
)

// ContactStore is the engine's read-only view of the CRM contact base.
type ContactStore interface {
	FindContact(ctx context.Context, id string) (*models.Contact, error)
	FindOpportunity(ctx context.Context, id string) (*models.Opportunity, error)

	// ListContacts returns the contacts visible to the current tenant;
	// audience filters are evaluated engine-side.
	ListContacts(ctx context.Context) ([]*models.Contact, error)
}

// SendRequest is one outbound message for a channel adapter.
type SendRequest struct {
	ContactID string
	Channel   string
	Content   string
	MediaURL  string
}

// SendResult reports a successful dispatch to a channel provider.
type SendResult struct {
	ProviderMessageID string
	Timestamp         time.Time
}

// ChannelSender dispatches messages through an outbound channel adapter
// (WhatsApp, SMS, email). Transient failures surface as errors so the
// dispatcher's retry accounting sees them.
type ChannelSender interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}

// OperationService executes the side-effecting operation named by an action
// node (send message, apply tag, update stage) against the CRM.
type OperationService interface {
	Execute(ctx context.Context, operation string, params map[string]any, contact *models.Contact) (map[string]any, error)
}

// MessageTemplate is a stored template a campaign step may reference.
type MessageTemplate struct {
	ID       string
	Content  string
	MediaURL string
}

// TemplateStore resolves campaign template references.
type TemplateStore interface {
	FindTemplate(ctx context.Context, id string) (*MessageTemplate, error)
}
