package interpreter

import (
	"fmt"
	"strings"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/template"
)

// resolveField resolves a condition field path like "contact.status" or
// "trigger.form_id" against the run's data. An unknown root segment is a
// configuration defect and non-retriable; a missing leaf resolves to nil so
// the is-empty operators behave sensibly.
func resolveField(field string, contact *models.Contact, opportunity *models.Opportunity, execContext map[string]any) (any, error) {
	segments := strings.Split(field, ".")

	if len(segments) == 1 {
		// Bare field names read from the contact.
		return contact.Field(segments[0]), nil
	}

	rest := strings.Join(segments[1:], ".")

	switch segments[0] {
	case "contact":
		return contact.Field(rest), nil
	case "opportunity":
		if opportunity == nil {
			return nil, nil
		}

		return opportunity.Field(rest), nil
	case "context":
		value, _ := template.Lookup(execContext, rest)

		return value, nil
	case "trigger", "results":
		value, _ := template.Lookup(execContext, field)

		return value, nil
	default:
		return nil, fmt.Errorf("condition field %q references unknown root %q", field, segments[0])
	}
}

// evalData assembles the template-rendering context for action parameters.
func evalData(contact *models.Contact, opportunity *models.Opportunity, execContext map[string]any) map[string]any {
	data := map[string]any{
		"contact": contactData(contact),
		"context": execContext,
	}

	if opportunity != nil {
		data["opportunity"] = map[string]any{
			"id":         opportunity.ID,
			"contact_id": opportunity.ContactID,
			"title":      opportunity.Title,
			"stage":      opportunity.Stage,
			"value":      opportunity.Value,
		}
	}

	if trigger, ok := execContext["trigger"]; ok {
		data["trigger"] = trigger
	}

	if results, ok := execContext["results"]; ok {
		data["results"] = results
	}

	return data
}

func contactData(contact *models.Contact) map[string]any {
	data := map[string]any{
		"id":     contact.ID,
		"name":   contact.Name,
		"email":  contact.Email,
		"phone":  contact.Phone,
		"status": contact.Status,
		"tags":   strings.Join(contact.Tags, ","),
	}

	for name, value := range contact.Fields {
		if _, exists := data[name]; !exists {
			data[name] = value
		}
	}

	return data
}
