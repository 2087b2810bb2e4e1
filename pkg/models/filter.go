package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Evaluate applies the operator to an actual value resolved from a contact or
// execution context and the configured expected value. Comparisons are string
// based except greater_than/less_than, which compare numerically when both
// sides parse as numbers.
func (op FilterOperator) Evaluate(actual any, expected string) bool {
	actualStr := valueToString(actual)

	switch op {
	case FilterOperatorEquals:
		return actualStr == expected
	case FilterOperatorNotEquals:
		return actualStr != expected
	case FilterOperatorContains:
		return strings.Contains(actualStr, expected)
	case FilterOperatorGreaterThan:
		return compareNumeric(actualStr, expected) > 0
	case FilterOperatorLessThan:
		return compareNumeric(actualStr, expected) < 0
	case FilterOperatorIsEmpty:
		return isEmpty(actual)
	case FilterOperatorIsNotEmpty:
		return !isEmpty(actual)
	default:
		return false
	}
}

// Matches reports whether a contact satisfies every condition of the filter.
func (f AudienceFilter) Matches(contact *Contact) bool {
	for _, condition := range f.Conditions {
		if !condition.Operator.Evaluate(contact.Field(condition.Field), condition.Value) {
			return false
		}
	}

	return true
}

func valueToString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []string:
		return strings.Join(typed, ",")
	case float64:
		if typed == float64(int64(typed)) {
			return strconv.FormatInt(int64(typed), 10)
		}

		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case []string:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}

func compareNumeric(actual, expected string) int {
	actualNum, errA := strconv.ParseFloat(actual, 64)
	expectedNum, errB := strconv.ParseFloat(expected, 64)

	if errA != nil || errB != nil {
		return strings.Compare(actual, expected)
	}

	switch {
	case actualNum > expectedNum:
		return 1
	case actualNum < expectedNum:
		return -1
	default:
		return 0
	}
}
