package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"focus-time-service/internal/focus-manager/db"
	"focus-time-service/internal/focus-manager/insights"
)

// WeeklyInsightCron fires Monday mornings.
const WeeklyInsightCron = "0 9 * * 1"

// InsightService runs the analyzer over the stored history window, caches
// the latest ranked list, and refreshes it on a weekly cron.
type InsightService struct {
	Repo      *db.TaskRepository
	Analyzer  *insights.Analyzer
	Scheduler gocron.Scheduler

	clock clockwork.Clock

	mu      sync.RWMutex
	latest  []insights.Insight
	lastRun time.Time
}

func NewInsightService(repo *db.TaskRepository, analyzer *insights.Analyzer) (*InsightService, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &InsightService{
		Repo:      repo,
		Analyzer:  analyzer,
		Scheduler: s,
		clock:     clockwork.NewRealClock(),
	}, nil
}

func (s *InsightService) Start() {
	log.Println("InsightService starting...")
	s.Scheduler.Start()
	_, err := s.Scheduler.NewJob(
		gocron.CronJob(WeeklyInsightCron, false),
		gocron.NewTask(func() { s.Refresh() }),
		gocron.WithName("weekly_insights"),
		gocron.WithTags("weekly_insights"),
	)
	if err != nil {
		log.Printf("Error scheduling weekly insight job: %v", err)
	}
	log.Println("InsightService started; weekly analysis scheduled.")
}

func (s *InsightService) Stop() {
	log.Println("InsightService stopping...")
	if err := s.Scheduler.Shutdown(); err != nil {
		log.Printf("Error shutting down insight scheduler: %v", err)
	}
}

// Refresh fetches the 30-day history window, re-runs the analyzers and
// replaces the cached list. A fetch failure degrades to an empty list; it is
// never surfaced as an error to callers.
func (s *InsightService) Refresh() []insights.Insight {
	now := s.clock.Now()
	since := now.Add(-insights.HistoryWindow)
	tasks, err := s.Repo.FetchHistory(since)
	if err != nil {
		log.Printf("InsightService: history fetch failed, producing no insights: %v", err)
		s.store(nil, now)
		return nil
	}
	results := s.Analyzer.Analyze(tasks)
	log.Printf("InsightService: analyzed %d tasks, produced %d insights", len(tasks), len(results))
	s.store(results, now)
	return results
}

// Latest returns the cached result of the most recent run and when it ran.
func (s *InsightService) Latest() ([]insights.Insight, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.lastRun
}

func (s *InsightService) store(list []insights.Insight, ranAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = list
	s.lastRun = ranAt
}
