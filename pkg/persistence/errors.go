// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAutomationNotFound indicates an automation was not found by the given identifier.
	ErrAutomationNotFound = errors.New("automation not found")

	// ErrExecutionLogNotFound indicates an execution log entry was not found.
	ErrExecutionLogNotFound = errors.New("execution log entry not found")

	// ErrCampaignNotFound indicates a campaign was not found by the given identifier.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrCampaignMessageNotFound indicates a campaign message was not found.
	ErrCampaignMessageNotFound = errors.New("campaign message not found")

	// ErrScheduledTaskNotFound indicates a scheduled task row was not found.
	ErrScheduledTaskNotFound = errors.New("scheduled task not found")
)

// AutomationError wraps automation-related errors with operation context.
type AutomationError struct {
	Op           string // Operation being performed (e.g., "GetByID", "ReplaceGraph")
	AutomationID string
	Err          error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("%s operation failed for automation %s: %v", e.Op, e.AutomationID, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

func (e *AutomationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAutomationError creates a new automation error with context.
func NewAutomationError(op, automationID string, err error) *AutomationError {
	return &AutomationError{
		Op:           op,
		AutomationID: automationID,
		Err:          err,
	}
}

// CampaignError wraps campaign-related errors with operation context.
type CampaignError struct {
	Op         string
	CampaignID string
	Err        error
}

func (e *CampaignError) Error() string {
	return fmt.Sprintf("%s operation failed for campaign %s: %v", e.Op, e.CampaignID, e.Err)
}

func (e *CampaignError) Unwrap() error {
	return e.Err
}

func (e *CampaignError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCampaignError creates a new campaign error with context.
func NewCampaignError(op, campaignID string, err error) *CampaignError {
	return &CampaignError{
		Op:         op,
		CampaignID: campaignID,
		Err:        err,
	}
}

// IsAutomationNotFound checks if an error indicates a missing automation.
func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

// IsCampaignNotFound checks if an error indicates a missing campaign.
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}
