package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TaskRepository is the persistence collaborator shared by the timer engine,
// the insight service and the reminder service.
type TaskRepository struct {
	DB *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

// Save persists the full record. Called after every engine transition.
func (r *TaskRepository) Save(task *TaskRecord) error {
	if result := r.DB.Save(task); result.Error != nil {
		return fmt.Errorf("failed to save task %s: %w", task.UUID, result.Error)
	}
	return nil
}

func (r *TaskRepository) Create(task *TaskRecord) error {
	if result := r.DB.Create(task); result.Error != nil {
		return fmt.Errorf("failed to create task %q: %w", task.Title, result.Error)
	}
	return nil
}

func (r *TaskRepository) FindByID(id uint) (*TaskRecord, error) {
	var task TaskRecord
	if result := r.DB.First(&task, id); result.Error != nil {
		return nil, result.Error
	}
	return &task, nil
}

func (r *TaskRepository) FindByUUID(uuid string) (*TaskRecord, error) {
	var task TaskRecord
	if result := r.DB.Where("uuid = ?", uuid).First(&task); result.Error != nil {
		return nil, result.Error
	}
	return &task, nil
}

// FetchHistory returns the analyzer's input window: tasks whose schedule
// starts at or after since, excluding recurrence-generated instances,
// newest first.
func (r *TaskRepository) FetchHistory(since time.Time) ([]TaskRecord, error) {
	var tasks []TaskRecord
	result := r.DB.
		Where("start_time >= ? AND is_generated_from_repeat = ?", since, false).
		Order("start_time DESC").
		Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch task history: %w", result.Error)
	}
	return tasks, nil
}

// FetchScheduledAfter returns scheduled tasks whose window opens after t,
// soonest first. Reminder scheduling input.
func (r *TaskRepository) FetchScheduledAfter(t time.Time) ([]TaskRecord, error) {
	var tasks []TaskRecord
	result := r.DB.
		Where("status = ? AND start_time > ?", string(StatusScheduled), t).
		Order("start_time ASC").
		Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch upcoming tasks: %w", result.Error)
	}
	return tasks, nil
}

// FetchRepeatParents returns non-generated tasks carrying a repeat rule.
// Rule validity is decided by ParseRepeatRule on the caller side; the query
// only excludes the trivially empty column.
func (r *TaskRepository) FetchRepeatParents() ([]TaskRecord, error) {
	var tasks []TaskRecord
	result := r.DB.
		Where("is_generated_from_repeat = ? AND repeat_rule IS NOT NULL AND repeat_rule != ''", false).
		Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch repeat parents: %w", result.Error)
	}
	return tasks, nil
}

// FetchChildren returns the materialized instances under a parent.
func (r *TaskRepository) FetchChildren(parentID uint) ([]TaskRecord, error) {
	var tasks []TaskRecord
	result := r.DB.Where("parent_task_id = ?", parentID).Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch children of task %d: %w", parentID, result.Error)
	}
	return tasks, nil
}

// RootParent walks the parent chain to its top through id lookups and
// returns the root record (the task itself when it has no parent).
func (r *TaskRepository) RootParent(task *TaskRecord) (*TaskRecord, error) {
	current := task
	for current.ParentTaskID != nil {
		parent, err := r.FindByID(*current.ParentTaskID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// Dangling parent reference: the chain ends here.
				return current, nil
			}
			return nil, err
		}
		current = parent
	}
	return current, nil
}

// DeleteCascade deletes the record and every record whose parent chain
// includes it. Children are collected breadth-first before any delete so a
// partial failure cannot orphan a subtree silently.
func (r *TaskRepository) DeleteCascade(id uint) error {
	ids := []uint{id}
	frontier := []uint{id}
	for len(frontier) > 0 {
		var children []TaskRecord
		if result := r.DB.Where("parent_task_id IN ?", frontier).Find(&children); result.Error != nil {
			return fmt.Errorf("failed to collect children for cascade delete of task %d: %w", id, result.Error)
		}
		frontier = frontier[:0]
		for _, child := range children {
			ids = append(ids, child.ID)
			frontier = append(frontier, child.ID)
		}
	}
	if result := r.DB.Delete(&TaskRecord{}, ids); result.Error != nil {
		return fmt.Errorf("failed to cascade-delete task %d: %w", id, result.Error)
	}
	return nil
}
