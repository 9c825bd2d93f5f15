package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"focus-time-service/internal/focus-manager/api"
	taskDB "focus-time-service/internal/focus-manager/db"
	"focus-time-service/internal/focus-manager/insights"
	fmKafka "focus-time-service/internal/focus-manager/kafka"
	"focus-time-service/internal/focus-manager/services"
	"focus-time-service/internal/focus-manager/session"
	"focus-time-service/internal/focus-manager/timer"
	gorm_db "focus-time-service/pkg/db"
)

func main() {
	stdlog.Println("Focus Manager Service starting...")

	gormDB, err := gorm_db.NewGormDB()
	if err != nil {
		stdlog.Fatalf("Failed to initialize database: %v", err)
	}
	stdlog.Println("Database initialized successfully.")

	stdlog.Println("Running database migrations...")
	err = gorm_db.AutoMigrate(gormDB, &taskDB.TaskRecord{})
	if err != nil {
		stdlog.Fatalf("Failed to migrate database: %v", err)
	}
	stdlog.Println("Database migration successful.")

	repo := taskDB.NewTaskRepository(gormDB)

	sessionProducer := fmKafka.NewSessionProducer()
	sessionNotifier := session.NewKafkaNotifier(sessionProducer)

	engine := timer.NewEngine(repo, sessionNotifier)
	engine.Subscribe(func(snap timer.Snapshot) {
		hlog.Debugf("timer snapshot: task=%s elapsed=%ds status=%s", snap.TaskUUID, snap.ElapsedSeconds, snap.Status)
	})

	insightService, err := services.NewInsightService(repo, insights.NewAnalyzer())
	if err != nil {
		stdlog.Fatalf("Failed to create insight service: %v", err)
	}
	insightService.Start()

	reminderService, err := services.NewReminderService(repo, sessionNotifier)
	if err != nil {
		stdlog.Fatalf("Failed to create reminder service: %v", err)
	}
	reminderService.Start()

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	hlog.SetOutput(os.Stdout)
	hlog.SetLevel(hlog.LevelInfo)

	h := server.Default(server.WithHostPorts(serverAddr), server.WithExitWaitTime(5*time.Second))

	taskHandler := api.NewTaskHandler(repo)
	timerHandler := api.NewTimerHandler(repo, engine)
	insightHandler := api.NewInsightHandler(insightService)

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
	adminGroup := h.Group("/admin")
	adminGroup.POST("/reminders/refresh", func(c context.Context, ctxReq *app.RequestContext) {
		reminderService.RefreshReminders()
		ctxReq.JSON(http.StatusOK, utils.H{"message": "Reminder refresh triggered"})
	})

	h.GET("/ping", func(c context.Context, ctxReq *app.RequestContext) {
		ctxReq.JSON(http.StatusOK, utils.H{"message": "pong"})
	})

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		sig := <-signals
		hlog.Infof("Received signal: %s. Initiating graceful shutdown...", sig)

		shutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer httpShutdownCancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			hlog.Errorf("Hertz server shutdown error: %v", err)
		} else {
			hlog.Info("Hertz server gracefully stopped.")
		}

		engine.Stop()
		reminderService.Stop()
		insightService.Stop()

		if err := sessionProducer.Close(); err != nil {
			hlog.Errorf("Kafka producer close error: %v", err)
		} else {
			hlog.Info("Kafka producer closed.")
		}
		hlog.Info("Focus Manager gracefully shut down.")
	}()

	hlog.Infof("Focus Manager Service fully initialized and starting Hertz server on %s...", serverAddr)
	h.Spin()

	stdlog.Println("Focus Manager Service has been shut down.")
}
