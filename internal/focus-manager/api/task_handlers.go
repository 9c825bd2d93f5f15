package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"

	taskDB "focus-time-service/internal/focus-manager/db"
	"focus-time-service/pkg/validation"
)

type TaskHandler struct {
	Repo *taskDB.TaskRepository
}

func NewTaskHandler(repo *taskDB.TaskRepository) *TaskHandler {
	return &TaskHandler{Repo: repo}
}

type CreateTaskRequest struct {
	Title           string    `json:"title" validate:"required"`
	Notes           string    `json:"notes"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`
	TaskType        string    `json:"task_type"`
	RepeatRule      string    `json:"repeat_rule"`
}

func (h *TaskHandler) CreateTask(ctx context.Context, c *app.RequestContext) {
	var req CreateTaskRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	if req.RepeatRule != "" {
		if err := validation.ValidateRepeatRule(req.RepeatRule); err != nil {
			log.Printf("Repeat rule validation failed: %v. Rule: %s", err, req.RepeatRule)
			c.JSON(http.StatusBadRequest, utils.H{
				"error":             "Repeat rule does not match the descriptor schema.",
				"validation_errors": err.Error(),
			})
			return
		}
	}

	task := taskDB.TaskRecord{
		UUID:            uuid.NewString(),
		Title:           req.Title,
		Notes:           req.Notes,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		RawTaskType:     req.TaskType,
		RawRepeatRule:   req.RepeatRule,
	}
	task.SetStatus(taskDB.StatusScheduled)

	if err := h.Repo.Create(&task); err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create task: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTasks(ctx context.Context, c *app.RequestContext) {
	var tasks []taskDB.TaskRecord
	query := h.Repo.DB.Model(&taskDB.TaskRecord{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if taskType := c.Query("task_type"); taskType != "" {
		query = query.Where("task_type = ?", taskType)
	}
	if parentIDStr := c.Query("parent_id"); parentIDStr != "" {
		parentID, err := strconv.ParseUint(parentIDStr, 10, 32)
		if err == nil {
			query = query.Where("parent_task_id = ?", uint(parentID))
		} else {
			log.Printf("Invalid parent_id query parameter: %s", parentIDStr)
		}
	}
	if result := query.Order("start_time ASC").Find(&tasks); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch tasks: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByUUID(ctx context.Context, c *app.RequestContext) {
	task, err := h.Repo.FindByUUID(c.Param("uuid"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch task: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task together with every recurrence instance
// generated under it.
func (h *TaskHandler) DeleteTask(ctx context.Context, c *app.RequestContext) {
	task, err := h.Repo.FindByUUID(c.Param("uuid"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Task not found to delete"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Error finding task to delete: " + err.Error()})
		}
		return
	}
	if err := h.Repo.DeleteCascade(task.ID); err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete task: " + err.Error()})
		return
	}
	log.Printf("Task ID %d (%s) deleted with its generated instances.", task.ID, task.Title)
	c.JSON(http.StatusOK, utils.H{"message": "Task deleted"})
}
