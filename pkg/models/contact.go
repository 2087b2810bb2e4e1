package models

import (
	"strings"
	"time"
)

// Contact is the engine's read-only view of a CRM contact. The contact store
// itself is an external collaborator; this model only carries what filters,
// conditions and templates need.
type Contact struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Status    string         `json:"status"`
	Tags      []string       `json:"tags,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Field resolves a named attribute for audience filters and condition nodes.
// Built-in fields take precedence over custom ones; unknown names resolve to
// nil, which the is-empty operators treat as empty.
func (c *Contact) Field(name string) any {
	switch strings.ToLower(name) {
	case "id":
		return c.ID
	case "name":
		return c.Name
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "status":
		return c.Status
	case "tags":
		return c.Tags
	}

	if c.Fields != nil {
		if v, ok := c.Fields[name]; ok {
			return v
		}
	}

	return nil
}

// Opportunity is the engine's read-only view of a CRM opportunity.
type Opportunity struct {
	ID        string  `json:"id"`
	ContactID string  `json:"contact_id"`
	Title     string  `json:"title"`
	Stage     string  `json:"stage"`
	Value     float64 `json:"value"`
}

// Field resolves a named attribute, mirroring Contact.Field.
func (o *Opportunity) Field(name string) any {
	switch strings.ToLower(name) {
	case "id":
		return o.ID
	case "contact_id":
		return o.ContactID
	case "title":
		return o.Title
	case "stage":
		return o.Stage
	case "value":
		return o.Value
	}

	return nil
}
