package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	taskDB "focus-time-service/internal/focus-manager/db"
	"focus-time-service/internal/focus-manager/insights"
	"focus-time-service/internal/focus-manager/services"
	"focus-time-service/internal/focus-manager/timer"
)

// noopNotifier satisfies the session notifier without a broker behind it.
type noopNotifier struct{}

func (noopNotifier) ActivateSession(mode string, remaining time.Duration, task *taskDB.TaskRecord) {}
func (noopNotifier) DeactivateSession()                                                            {}
func (noopNotifier) UpdateProgress(remaining time.Duration, progress float64, phase timer.SessionPhase, active bool) {
}

type testApp struct {
	router  *route.Engine
	gormDB  *gorm.DB
	repo    *taskDB.TaskRepository
	engine  *timer.Engine
	clock   *clockwork.FakeClock
	service *services.InsightService
}

func setupTestApp(t *testing.T, dbFilePath string) *testApp {
	t.Helper()
	os.Remove(dbFilePath)

	gormDB, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database '%s': %v", dbFilePath, err)
	}
	if err := gormDB.AutoMigrate(&taskDB.TaskRecord{}); err != nil {
		t.Fatalf("Failed to migrate test database '%s': %v", dbFilePath, err)
	}

	hlog.SetLevel(hlog.LevelFatal)

	repo := taskDB.NewTaskRepository(gormDB)
	clock := clockwork.NewFakeClockAt(time.Now().UTC())
	engine := timer.NewEngine(repo, noopNotifier{}, timer.WithClock(clock))

	insightService, err := services.NewInsightService(repo, insights.NewAnalyzer())
	require.NoError(t, err)

	h := server.Default(
		server.WithHostPorts("127.0.0.1:0"),
		server.WithExitWaitTime(time.Duration(0)),
	)

	taskHandler := NewTaskHandler(repo)
	timerHandler := NewTimerHandler(repo, engine)
	insightHandler := NewInsightHandler(insightService)

	taskGroup := h.Group("/tasks")
	{
		taskGroup.POST("", taskHandler.CreateTask)
		taskGroup.GET("", taskHandler.GetTasks)
		taskGroup.GET("/:uuid", taskHandler.GetTaskByUUID)
		taskGroup.DELETE("/:uuid", taskHandler.DeleteTask)
	}
	timerGroup := h.Group("/timer")
	{
		timerGroup.GET("", timerHandler.GetTimer)
		timerGroup.POST("/start", timerHandler.StartTimer)
		timerGroup.POST("/pause", timerHandler.PauseTimer)
		timerGroup.POST("/resume", timerHandler.ResumeTimer)
		timerGroup.POST("/complete", timerHandler.CompleteTimer)
		timerGroup.POST("/stop", timerHandler.StopTimer)
	}
	insightGroup := h.Group("/insights")
	{
		insightGroup.GET("", insightHandler.GetInsights)
		insightGroup.POST("/refresh", insightHandler.RefreshInsights)
	}

	return &testApp{
		router: h.Engine, gormDB: gormDB, repo: repo,
		engine: engine, clock: clock, service: insightService,
	}
}

func (a *testApp) teardown(t *testing.T, dbFilePath string) {
	a.engine.Stop()
	if a.gormDB != nil {
		sqlDB, err := a.gormDB.DB()
		if err == nil && sqlDB != nil {
			if err := sqlDB.Close(); err != nil {
				t.Logf("Warning: could not close test API DB: %v", err)
			}
		}
	}
	if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
		t.Logf("Warning: could not remove test API DB file '%s': %v", dbFilePath, err)
	}
}

func postJSON(router *route.Engine, url string, payload interface{}) *ut.ResponseRecorder {
	payloadBytes, _ := json.Marshal(payload)
	return ut.PerformRequest(router, "POST", url,
		&ut.Body{Body: bytes.NewReader(payloadBytes), Len: len(payloadBytes)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func seedTask(t *testing.T, app *testApp, uuid string, start time.Time, durationMinutes int, status taskDB.TaskStatus) *taskDB.TaskRecord {
	t.Helper()
	task := &taskDB.TaskRecord{UUID: uuid, Title: uuid, StartTime: start, DurationMinutes: durationMinutes}
	task.SetStatus(status)
	require.NoError(t, app.repo.Create(task))
	return task
}

func TestCreateTaskAPI_Valid(t *testing.T) {
	dbFilePath := "test_api_create_valid_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
	app := setupTestApp(t, dbFilePath)
	defer app.teardown(t, dbFilePath)

	payload := CreateTaskRequest{
		Title:           "Morning deep work",
		Notes:           "Draft the quarterly report",
		StartTime:       time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 45,
		TaskType:        "deep_work",
	}
	w := postJSON(app.router, "/tasks", payload)
	resp := w.Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	var created taskDB.TaskRecord
	err := json.Unmarshal(resp.Body(), &created)
	assert.NoError(t, err)
	assert.Equal(t, payload.Title, created.Title)
	assert.NotEmpty(t, created.UUID)
	assert.NotZero(t, created.ID)
	assert.Equal(t, taskDB.StatusScheduled, created.Status())
}

func TestCreateTaskAPI_RepeatRule(t *testing.T) {
	dbFilePath := "test_api_create_repeat_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
	app := setupTestApp(t, dbFilePath)
	defer app.teardown(t, dbFilePath)

	valid := CreateTaskRequest{
		Title:           "Weekly review",
		StartTime:       time.Date(2025, 7, 4, 16, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		RepeatRule:      `{"frequency":"weekly","interval":1}`,
	}
	resp := postJSON(app.router, "/tasks", valid).Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	invalid := valid
	invalid.RepeatRule = `{"frequency":"hourly"}`
	resp = postJSON(app.router, "/tasks", invalid).Result()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	var errorResponse map[string]interface{}
	err := json.Unmarshal(resp.Body(), &errorResponse)
	assert.NoError(t, err)
	assert.Contains(t, errorResponse["error"], "descriptor schema")
}

func TestGetTaskByUUIDAPI_NotFound(t *testing.T) {
	dbFilePath := "test_api_get_missing_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
	app := setupTestApp(t, dbFilePath)
	defer app.teardown(t, dbFilePath)

	resp := ut.PerformRequest(app.router, "GET", "/tasks/no-such-uuid", nil).Result()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestGetTasksAPI_StatusFilter(t *testing.T) {
	dbFilePath := "test_api_list_filter_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
	app := setupTestApp(t, dbFilePath)
	defer app.teardown(t, dbFilePath)

	now := app.clock.Now()
	seedTask(t, app, "pending-1", now.Add(time.Hour), 30, taskDB.StatusScheduled)
	seedTask(t, app, "pending-2", now.Add(2*time.Hour), 30, taskDB.StatusScheduled)
	seedTask(t, app, "done", now.Add(-time.Hour), 30, taskDB.StatusCompleted)

	resp := ut.PerformRequest(app.router, "GET", "/tasks?status=completed", nil).Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var tasks []taskDB.TaskRecord
	require.NoError(t, json.Unmarshal(resp.Body(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "done", tasks[0].UUID)
}

func TestDeleteTaskAPI_RemovesGeneratedInstances(t *testing.T) {
	dbFilePath := "test_api_delete_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
	app := setupTestApp(t, dbFilePath)
	defer app.teardown(t, dbFilePath)

	now := app.clock.Now()
	parent := seedTask(t, app, "repeat-parent", now.Add(time.Hour), 30, taskDB.StatusScheduled)
	child := &taskDB.TaskRecord{
		UUID: "generated-child", Title: "generated", StartTime: now.Add(25 * time.Hour),
		DurationMinutes: 30, ParentTaskID: &parent.ID, IsGeneratedFromRepeat: true,
	}
	child.SetStatus(taskDB.StatusScheduled)
	require.NoError(t, app.repo.Create(child))

	resp := ut.PerformRequest(app.router, "DELETE", "/tasks/repeat-parent", nil).Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	for _, uuid := range []string{"repeat-parent", "generated-child"} {
		_, err := app.repo.FindByUUID(uuid)
		assert.Equal(t, gorm.ErrRecordNotFound, err, "expected %s to be gone", uuid)
	}

	resp = ut.PerformRequest(app.router, "DELETE", "/tasks/repeat-parent", nil).Result()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

type timerStateResponse struct {
	ActiveTaskUUID   string  `json:"active_task_uuid"`
	Status           string  `json:"status"`
	ElapsedSeconds   int     `json:"elapsed_seconds"`
	Elapsed          string  `json:"elapsed"`
	RemainingSeconds int     `json:"remaining_seconds"`
	Remaining        string  `json:"remaining"`
	Progress         float64 `json:"progress"`
	Overtime         bool    `json:"overtime"`
	StatusText       string  `json:"status_text"`
}

func decodeTimerState(t *testing.T, resp *ut.ResponseRecorder) timerStateResponse {
	t.Helper()
	var state timerStateResponse
	require.NoError(t, json.Unmarshal(resp.Result().Body(), &state))
	return state
}

func TestTimerAPI_Lifecycle(t *testing.T) {
	dbFilePath := "test_api_timer_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
	app := setupTestApp(t, dbFilePath)
	defer app.teardown(t, dbFilePath)

	seedTask(t, app, "focus-block", app.clock.Now(), 30, taskDB.StatusScheduled)

	// Idle state before anything starts.
	w := ut.PerformRequest(app.router, "GET", "/timer", nil)
	state := decodeTimerState(t, w)
	assert.Empty(t, state.ActiveTaskUUID)
	assert.Equal(t, "no active task", state.StatusText)

	w = postJSON(app.router, "/timer/start", StartTimerRequest{TaskUUID: "focus-block", Reset: true})
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())
	state = decodeTimerState(t, w)
	assert.Equal(t, "focus-block", state.ActiveTaskUUID)
	assert.Equal(t, string(taskDB.StatusInProgress), state.Status)
	assert.Equal(t, 0, state.ElapsedSeconds)
	assert.Equal(t, 1800, state.RemainingSeconds)
	assert.Equal(t, "30:00 remaining", state.StatusText)

	w = postJSON(app.router, "/timer/pause", nil)
	state = decodeTimerState(t, w)
	assert.Equal(t, string(taskDB.StatusPaused), state.Status)

	w = postJSON(app.router, "/timer/resume", nil)
	state = decodeTimerState(t, w)
	assert.Equal(t, string(taskDB.StatusInProgress), state.Status)

	w = postJSON(app.router, "/timer/complete", nil)
	state = decodeTimerState(t, w)
	assert.Equal(t, string(taskDB.StatusCompleted), state.Status)

	w = postJSON(app.router, "/timer/stop", nil)
	state = decodeTimerState(t, w)
	assert.Empty(t, state.ActiveTaskUUID)
	assert.Equal(t, 0, state.ElapsedSeconds)

	// The completion was persisted; restarting the same task is a conflict.
	w = postJSON(app.router, "/timer/start", StartTimerRequest{TaskUUID: "focus-block"})
	assert.Equal(t, http.StatusConflict, w.Result().StatusCode())
}

func TestStartTimerAPI_UnknownTask(t *testing.T) {
	dbFilePath := "test_api_timer_missing_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
	app := setupTestApp(t, dbFilePath)
	defer app.teardown(t, dbFilePath)

	w := postJSON(app.router, "/timer/start", StartTimerRequest{TaskUUID: "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode())
}

func TestInsightsAPI(t *testing.T) {
	dbFilePath := "test_api_insights_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ".db"
	app := setupTestApp(t, dbFilePath)
	defer app.teardown(t, dbFilePath)

	// Before any analysis run the list is empty, never null.
	resp := ut.PerformRequest(app.router, "GET", "/insights", nil).Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	var listing struct {
		Insights []insights.Insight `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &listing))
	assert.NotNil(t, listing.Insights)
	assert.Empty(t, listing.Insights)

	// Seed a completed week and refresh on demand.
	now := time.Now().UTC()
	for i := 0; i < 8; i++ {
		status := taskDB.StatusCompleted
		if i >= 6 {
			status = taskDB.StatusCancelled
		}
		seedTask(t, app, "hist-"+strconv.Itoa(i), now.Add(-time.Duration(i+1)*6*time.Hour), 30, status)
	}

	resp = ut.PerformRequest(app.router, "POST", "/insights/refresh", nil).Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	var refreshed struct {
		Insights []insights.Insight `json:"insights"`
		Count    int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &refreshed))
	assert.Equal(t, len(refreshed.Insights), refreshed.Count)
	assert.NotEmpty(t, refreshed.Insights)
}
