package models

import "time"

// ScheduledTask is the durable due-time index entry behind delayed dispatch:
// a serialized task payload plus the time it becomes eligible. A crashed
// worker never loses pending delays because the row survives until the task
// is published.
type ScheduledTask struct {
	ID        string    `json:"id"`
	TaskType  string    `json:"task_type"`
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}
