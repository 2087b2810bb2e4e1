package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterOperator_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		operator FilterOperator
		actual   any
		expected string
		want     bool
	}{
		{"equals match", FilterOperatorEquals, "lead", "lead", true},
		{"equals mismatch", FilterOperatorEquals, "lead", "customer", false},
		{"not equals", FilterOperatorNotEquals, "lead", "customer", true},
		{"contains", FilterOperatorContains, "vip,newsletter", "vip", true},
		{"contains mismatch", FilterOperatorContains, "newsletter", "vip", false},
		{"greater than numeric", FilterOperatorGreaterThan, 10.0, "5", true},
		{"greater than equal", FilterOperatorGreaterThan, 5.0, "5", false},
		{"less than numeric", FilterOperatorLessThan, 3.0, "5", true},
		{"greater than lexical fallback", FilterOperatorGreaterThan, "b", "a", true},
		{"is empty nil", FilterOperatorIsEmpty, nil, "", true},
		{"is empty string", FilterOperatorIsEmpty, "", "", true},
		{"is empty slice", FilterOperatorIsEmpty, []string{}, "", true},
		{"is empty non-empty", FilterOperatorIsEmpty, "x", "", false},
		{"is not empty", FilterOperatorIsNotEmpty, "x", "", true},
		{"is not empty nil", FilterOperatorIsNotEmpty, nil, "", false},
		{"unknown operator", FilterOperator("matches"), "x", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.operator.Evaluate(tt.actual, tt.expected))
		})
	}
}

func TestFilterOperator_EvaluateTagList(t *testing.T) {
	tags := []string{"vip", "newsletter"}

	// Tag slices compare through their joined form.
	assert.True(t, FilterOperatorContains.Evaluate(tags, "vip"))
	assert.True(t, FilterOperatorEquals.Evaluate(tags, "vip,newsletter"))
	assert.False(t, FilterOperatorIsEmpty.Evaluate(tags, ""))
}

func TestAudienceFilter_Matches(t *testing.T) {
	contact := &Contact{
		ID:     "c1",
		Name:   "Maria",
		Email:  "maria@example.com",
		Status: "lead",
		Tags:   []string{"vip"},
		Fields: map[string]any{"city": "Lisbon"},
	}

	filter := AudienceFilter{
		Conditions: []FilterCondition{
			{Field: "status", Operator: FilterOperatorEquals, Value: "lead"},
			{Field: "tags", Operator: FilterOperatorContains, Value: "vip"},
			{Field: "city", Operator: FilterOperatorEquals, Value: "Lisbon"},
		},
	}

	assert.True(t, filter.Matches(contact))

	contact.Status = "customer"
	assert.False(t, filter.Matches(contact))
}

func TestAudienceFilter_EmptyMatchesEveryone(t *testing.T) {
	filter := AudienceFilter{}

	assert.True(t, filter.Matches(&Contact{ID: "c1"}))
}

func TestContact_Field(t *testing.T) {
	contact := &Contact{
		ID:     "c1",
		Name:   "Maria",
		Email:  "maria@example.com",
		Status: "lead",
		Fields: map[string]any{"city": "Lisbon", "email": "shadowed@example.com"},
	}

	assert.Equal(t, "Maria", contact.Field("name"))
	assert.Equal(t, "Maria", contact.Field("Name"))
	assert.Equal(t, "Lisbon", contact.Field("city"))

	// Built-ins win over custom fields of the same name.
	assert.Equal(t, "maria@example.com", contact.Field("email"))

	assert.Nil(t, contact.Field("unknown"))
}
