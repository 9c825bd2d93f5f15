package services

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"focus-time-service/internal/focus-manager/db"
)

const (
	// RepeatExpansionCron materializes upcoming repeat instances nightly.
	RepeatExpansionCron = "0 3 * * *"
	// RepeatHorizon is how far ahead repeat instances are materialized.
	RepeatHorizon = 7 * 24 * time.Hour
)

// ReminderPublisher is the slice of the session notifier the reminder
// service needs.
type ReminderPublisher interface {
	PublishReminder(task *db.TaskRecord)
}

// ReminderService owns two scheduling concerns: one-time reminder jobs that
// fire when a scheduled task's window opens, and the nightly expansion of
// repeat rules into generated child instances.
type ReminderService struct {
	Repo      *db.TaskRepository
	Scheduler gocron.Scheduler
	Publisher ReminderPublisher

	clock clockwork.Clock
}

func NewReminderService(repo *db.TaskRepository, publisher ReminderPublisher) (*ReminderService, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &ReminderService{
		Repo:      repo,
		Scheduler: s,
		Publisher: publisher,
		clock:     clockwork.NewRealClock(),
	}, nil
}

func (s *ReminderService) Start() {
	log.Println("ReminderService starting...")
	s.Scheduler.Start()
	_, err := s.Scheduler.NewJob(
		gocron.CronJob(RepeatExpansionCron, false),
		gocron.NewTask(func() { s.ExpandRepeats() }),
		gocron.WithName("repeat_expansion"),
		gocron.WithTags("repeat_expansion"),
	)
	if err != nil {
		log.Printf("Error scheduling repeat expansion job: %v", err)
	}
	s.RefreshReminders()
	log.Println("ReminderService started; reminders and repeat expansion scheduled.")
}

func (s *ReminderService) Stop() {
	log.Println("ReminderService stopping...")
	if err := s.Scheduler.Shutdown(); err != nil {
		log.Printf("Error shutting down reminder scheduler: %v", err)
	}
}

// RefreshReminders re-registers one-time reminder jobs for every scheduled
// task whose window opens in the future, removing stale jobs by tag first.
func (s *ReminderService) RefreshReminders() {
	now := s.clock.Now()
	tasks, err := s.Repo.FetchScheduledAfter(now)
	if err != nil {
		log.Printf("Error fetching upcoming tasks for reminders: %v", err)
		return
	}

	s.Scheduler.RemoveByTags("task_reminder")

	registered := 0
	for i := range tasks {
		task := tasks[i]
		jobName := fmt.Sprintf("reminder_task_%d", task.ID)
		_, err := s.Scheduler.NewJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(task.StartTime.UTC())),
			gocron.NewTask(s.fireReminder, task.ID),
			gocron.WithName(jobName),
			gocron.WithTags("task_reminder", fmt.Sprintf("task_id:%d", task.ID)),
		)
		if err != nil {
			log.Printf("Error scheduling reminder for task ID %d (%s) at %v: %v",
				task.ID, task.Title, task.StartTime, err)
			continue
		}
		registered++
	}
	log.Printf("ReminderService: %d reminders registered (%d jobs total scheduled).",
		registered, len(s.Scheduler.Jobs()))
}

// fireReminder publishes the reminder event unless the task moved on from
// the scheduled state in the meantime.
func (s *ReminderService) fireReminder(taskID uint) {
	task, err := s.Repo.FindByID(taskID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("Reminder fired for task ID %d, but it no longer exists.", taskID)
		} else {
			log.Printf("Error fetching task ID %d for reminder: %v", taskID, err)
		}
		return
	}
	if task.Status() != db.StatusScheduled {
		log.Printf("Reminder for task ID %d skipped: status is %q, not scheduled.", taskID, task.RawStatus)
		return
	}
	log.Printf("Reminder: task ID %d (%s) window opens now.", task.ID, task.Title)
	s.Publisher.PublishReminder(task)
}

// ExpandRepeats materializes generated child instances for every repeat
// parent, covering occurrences inside the horizon. Occurrences already
// materialized are skipped, so re-running is idempotent.
func (s *ReminderService) ExpandRepeats() {
	parents, err := s.Repo.FetchRepeatParents()
	if err != nil {
		log.Printf("Error fetching repeat parents: %v", err)
		return
	}
	created := 0
	for i := range parents {
		parent := parents[i]
		rule := parent.RepeatRule()
		if rule.IsNone() {
			continue
		}
		n, err := s.expandParent(&parent, rule)
		if err != nil {
			log.Printf("Error expanding repeat rule for task ID %d (%s): %v", parent.ID, parent.Title, err)
			continue
		}
		created += n
	}
	if created > 0 {
		log.Printf("ReminderService: materialized %d repeat instances.", created)
		s.RefreshReminders()
	}
}

func (s *ReminderService) expandParent(parent *db.TaskRecord, rule db.RepeatRule) (int, error) {
	children, err := s.Repo.FetchChildren(parent.ID)
	if err != nil {
		return 0, err
	}
	existing := make(map[int64]bool, len(children))
	for _, child := range children {
		existing[child.StartTime.Unix()] = true
	}

	now := s.clock.Now()
	horizon := now.Add(RepeatHorizon)
	created := 0
	for occ := nextOccurrence(parent.StartTime, rule); !occ.After(horizon); occ = nextOccurrence(occ, rule) {
		if !occ.After(now) || existing[occ.Unix()] {
			continue
		}
		child := &db.TaskRecord{
			UUID:                  uuid.NewString(),
			Title:                 parent.Title,
			Notes:                 parent.Notes,
			StartTime:             occ,
			DurationMinutes:       parent.DurationMinutes,
			RawTaskType:           parent.RawTaskType,
			ParentTaskID:          &parent.ID,
			IsGeneratedFromRepeat: true,
		}
		child.SetStatus(db.StatusScheduled)
		if err := s.Repo.Create(child); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func nextOccurrence(after time.Time, rule db.RepeatRule) time.Time {
	switch rule.Frequency {
	case db.RepeatDaily:
		return after.AddDate(0, 0, rule.Interval)
	case db.RepeatWeekly:
		return after.AddDate(0, 0, 7*rule.Interval)
	case db.RepeatMonthly:
		return after.AddDate(0, rule.Interval, 0)
	default:
		// Unreachable for validated rules; step a day to keep loops finite.
		return after.AddDate(0, 0, 1)
	}
}
