package db

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// TaskStatus is the typed view of the raw status column.
type TaskStatus string

const (
	StatusScheduled  TaskStatus = "scheduled"
	StatusInProgress TaskStatus = "in_progress"
	StatusPaused     TaskStatus = "paused"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
	StatusUnknown    TaskStatus = "unknown"
)

// ParseTaskStatus maps a raw column value to a TaskStatus, falling back to
// StatusUnknown for anything it does not recognize. The mapping happens here,
// at the storage boundary, so callers never deal with raw strings.
func ParseTaskStatus(raw string) TaskStatus {
	switch TaskStatus(raw) {
	case StatusScheduled, StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled:
		return TaskStatus(raw)
	default:
		return StatusUnknown
	}
}

// TaskType categorizes a task for focus-mode setup and the insight analyzer.
type TaskType string

const (
	TypeDeepWork TaskType = "deep_work"
	TypeRelax    TaskType = "relax"
	TypeRoutine  TaskType = "routine"
	TypeUnknown  TaskType = "unknown"
)

func ParseTaskType(raw string) TaskType {
	switch TaskType(raw) {
	case TypeDeepWork, TypeRelax, TypeRoutine:
		return TaskType(raw)
	default:
		return TypeUnknown
	}
}

// Repeat frequencies accepted in a repeat-rule descriptor.
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// RepeatRule is the recurrence descriptor stored as a JSON string in the
// repeat_rule column, e.g. {"frequency":"weekly","interval":2}.
type RepeatRule struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval,omitempty"`
}

// ParseRepeatRule decodes a raw repeat_rule column value. Empty or malformed
// descriptors map to the none rule rather than an error.
func ParseRepeatRule(raw string) RepeatRule {
	if raw == "" {
		return RepeatRule{Frequency: RepeatNone}
	}
	var rule RepeatRule
	if err := json.Unmarshal([]byte(raw), &rule); err != nil {
		return RepeatRule{Frequency: RepeatNone}
	}
	switch rule.Frequency {
	case RepeatDaily, RepeatWeekly, RepeatMonthly:
	default:
		return RepeatRule{Frequency: RepeatNone}
	}
	if rule.Interval < 1 {
		rule.Interval = 1
	}
	return rule
}

// IsNone reports whether the rule describes no recurrence.
func (r RepeatRule) IsNone() bool { return r.Frequency == RepeatNone }

// TaskRecord is one schedulable unit of work: a planned wall-clock window
// plus its execution state. Enum-ish fields are persisted as raw strings and
// exposed through the typed accessors below.
type TaskRecord struct {
	gorm.Model
	UUID  string `json:"uuid" gorm:"uniqueIndex"`
	Title string `json:"title" gorm:"index"`
	Notes string `json:"notes"`

	StartTime       time.Time `json:"start_time" gorm:"index"`
	DurationMinutes int       `json:"duration_minutes"`

	RawStatus       string     `json:"status" gorm:"column:status;index"`
	ActualStartTime *time.Time `json:"actual_start_time"`
	IsCompleted     bool       `json:"is_completed" gorm:"index"`

	RawTaskType   string `json:"task_type" gorm:"column:task_type;index"`
	RawRepeatRule string `json:"repeat_rule" gorm:"column:repeat_rule"`

	ParentTaskID          *uint        `json:"parent_task_id" gorm:"index"`
	IsGeneratedFromRepeat bool         `json:"is_generated_from_repeat" gorm:"index"`
	Children              []TaskRecord `json:"-" gorm:"foreignKey:ParentTaskID"`
}

func (t *TaskRecord) Status() TaskStatus { return ParseTaskStatus(t.RawStatus) }

// SetStatus writes the raw column and keeps the redundant IsCompleted marker
// in lockstep with StatusCompleted.
func (t *TaskRecord) SetStatus(s TaskStatus) {
	t.RawStatus = string(s)
	t.IsCompleted = s == StatusCompleted
}

func (t *TaskRecord) TaskType() TaskType { return ParseTaskType(t.RawTaskType) }

func (t *TaskRecord) RepeatRule() RepeatRule { return ParseRepeatRule(t.RawRepeatRule) }

// EstimatedEndTime is the end of the planned schedule window.
func (t *TaskRecord) EstimatedEndTime() time.Time {
	return t.StartTime.Add(time.Duration(t.DurationMinutes) * time.Minute)
}

// IsParent reports whether this record heads a recurrence family: it has
// materialized children, or it carries a non-trivial repeat rule and is not
// itself a generated instance.
func (t *TaskRecord) IsParent() bool {
	if len(t.Children) > 0 {
		return true
	}
	return !t.RepeatRule().IsNone() && !t.IsGeneratedFromRepeat
}

// IsChild reports whether this record belongs to a recurrence family headed
// by another record.
func (t *TaskRecord) IsChild() bool {
	return t.ParentTaskID != nil || t.IsGeneratedFromRepeat
}
