package api

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	taskDB "focus-time-service/internal/focus-manager/db"
	"focus-time-service/internal/focus-manager/timer"
)

// TimerHandler exposes the engine transitions to UI-equivalent callers.
// Transition endpoints return the post-transition snapshot; calling them
// with no active task is a silent no-op, not an API error.
type TimerHandler struct {
	Repo   *taskDB.TaskRepository
	Engine *timer.Engine
}

func NewTimerHandler(repo *taskDB.TaskRepository, engine *timer.Engine) *TimerHandler {
	return &TimerHandler{Repo: repo, Engine: engine}
}

type StartTimerRequest struct {
	TaskUUID string `json:"task_uuid" validate:"required"`
	Reset    bool   `json:"reset"`
}

func (h *TimerHandler) StartTimer(ctx context.Context, c *app.RequestContext) {
	var req StartTimerRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	task, err := h.Repo.FindByUUID(req.TaskUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch task: " + err.Error()})
		}
		return
	}
	if task.Status() == taskDB.StatusCompleted {
		c.JSON(http.StatusConflict, utils.H{"error": "Task is already completed"})
		return
	}
	h.Engine.Start(task, req.Reset)
	c.JSON(http.StatusOK, h.timerState())
}

func (h *TimerHandler) PauseTimer(ctx context.Context, c *app.RequestContext) {
	h.Engine.Pause()
	c.JSON(http.StatusOK, h.timerState())
}

func (h *TimerHandler) ResumeTimer(ctx context.Context, c *app.RequestContext) {
	h.Engine.Resume()
	c.JSON(http.StatusOK, h.timerState())
}

func (h *TimerHandler) CompleteTimer(ctx context.Context, c *app.RequestContext) {
	h.Engine.Complete()
	c.JSON(http.StatusOK, h.timerState())
}

func (h *TimerHandler) StopTimer(ctx context.Context, c *app.RequestContext) {
	h.Engine.Stop()
	c.JSON(http.StatusOK, h.timerState())
}

func (h *TimerHandler) GetTimer(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, h.timerState())
}

func (h *TimerHandler) timerState() utils.H {
	snap := h.Engine.CurrentSnapshot()
	return utils.H{
		"active_task_uuid":  snap.TaskUUID,
		"status":            snap.Status,
		"elapsed_seconds":   snap.ElapsedSeconds,
		"elapsed":           h.Engine.ElapsedDisplay(),
		"remaining_seconds": h.Engine.RemainingSeconds(),
		"remaining":         h.Engine.RemainingDisplay(),
		"progress":          h.Engine.Progress(),
		"overtime":          h.Engine.Overtime(),
		"status_text":       h.Engine.StatusText(),
	}
}
