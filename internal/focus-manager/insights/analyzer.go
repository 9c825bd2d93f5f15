package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"focus-time-service/internal/focus-manager/db"
)

// MaxInsights caps the ranked result list.
const MaxInsights = 5

// HistoryWindow is how far back the analyzer looks for input records.
const HistoryWindow = 30 * 24 * time.Hour

// Significance thresholds and minimum sample gates.
const (
	peakBandThreshold    = 0.15
	dipBandThreshold     = 0.20
	sweetSpotRate        = 0.8
	sweetSpotMinSamples  = 5
	breakDiffThreshold   = 0.15
	breakMinSamples      = 3
	weeklyGoalRate       = 0.75
	weeklyMinSamples     = 5
	weekdaySpreadMin     = 0.25
	weekdayMinDistinct   = 4
	breakProximityWindow = 30 * time.Minute
)

// Analyzer batch-computes behavioral insights over historical task records.
// Pure in-memory computation; the only environmental input is the clock.
type Analyzer struct {
	clock clockwork.Clock
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{clock: clockwork.NewRealClock()}
}

// NewAnalyzerWithClock is for tests that pin "now".
func NewAnalyzerWithClock(clock clockwork.Clock) *Analyzer {
	return &Analyzer{clock: clock}
}

// Analyze runs the five analyzers over the task set, ranks everything that
// cleared its significance gate by impact score descending, and returns at
// most MaxInsights entries. An empty or nil task set yields no insights.
func (a *Analyzer) Analyze(tasks []db.TaskRecord) []Insight {
	if len(tasks) == 0 {
		return nil
	}
	now := a.clock.Now()

	var collected []Insight
	collected = append(collected, a.analyzeTimeOfDay(tasks, now)...)
	collected = append(collected, a.analyzeTaskDuration(tasks, now)...)
	collected = append(collected, a.analyzeBreakPattern(tasks, now)...)
	collected = append(collected, a.analyzeCompletionTrend(tasks, now)...)
	collected = append(collected, a.analyzeDayOfWeek(tasks, now)...)

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].ImpactScore > collected[j].ImpactScore
	})
	if len(collected) > MaxInsights {
		collected = collected[:MaxInsights]
	}
	return collected
}

func isCompleted(t *db.TaskRecord) bool {
	return t.IsCompleted || t.Status() == db.StatusCompleted
}

type bucketStats struct {
	total     int
	completed int
}

func (b bucketStats) rate() float64 {
	if b.total == 0 {
		return 0
	}
	return float64(b.completed) / float64(b.total)
}

// The six fixed local-time bands. Night wraps around midnight.
var timeBands = []struct {
	name      string
	startHour int // inclusive
	endHour   int // exclusive
}{
	{"early morning", 6, 9},
	{"late morning", 9, 12},
	{"early afternoon", 12, 15},
	{"late afternoon", 15, 18},
	{"evening", 18, 21},
	{"night", 21, 6},
}

func timeBandIndex(hour int) int {
	for i, band := range timeBands {
		if band.startHour < band.endHour {
			if hour >= band.startHour && hour < band.endHour {
				return i
			}
		} else if hour >= band.startHour || hour < band.endHour {
			return i
		}
	}
	return len(timeBands) - 1
}

// analyzeTimeOfDay compares per-band completion rates against the mean
// across occupied bands. No minimum sample gate here; the deviation
// thresholds alone decide significance.
func (a *Analyzer) analyzeTimeOfDay(tasks []db.TaskRecord, now time.Time) []Insight {
	buckets := make([]bucketStats, len(timeBands))
	for i := range tasks {
		idx := timeBandIndex(tasks[i].StartTime.Hour())
		buckets[idx].total++
		if isCompleted(&tasks[i]) {
			buckets[idx].completed++
		}
	}

	var sum float64
	occupied := 0
	bestIdx, worstIdx := -1, -1
	for i, b := range buckets {
		if b.total == 0 {
			continue
		}
		occupied++
		sum += b.rate()
		if bestIdx == -1 || b.rate() > buckets[bestIdx].rate() {
			bestIdx = i
		}
		if worstIdx == -1 || b.rate() < buckets[worstIdx].rate() {
			worstIdx = i
		}
	}
	if occupied == 0 {
		return nil
	}
	mean := sum / float64(occupied)

	var out []Insight
	if best := buckets[bestIdx]; best.rate()-mean > peakBandThreshold {
		deviation := best.rate() - mean
		out = append(out, Insight{
			Type:  InsightTimeOfDay,
			Title: "Peak performance window",
			Message: fmt.Sprintf("You complete %.0f%% of tasks in the %s, versus a %.0f%% average across your day.",
				best.rate()*100, timeBands[bestIdx].name, mean*100),
			Recommendation: fmt.Sprintf("Schedule your most demanding work in the %s.", timeBands[bestIdx].name),
			ImpactScore:    deviation * 100,
			DataPoints:     best.total,
			Trend:          TrendImproving,
			CreatedAt:      now,
		})
	}
	if worst := buckets[worstIdx]; mean-worst.rate() > dipBandThreshold {
		deviation := mean - worst.rate()
		out = append(out, Insight{
			Type:  InsightTimeOfDay,
			Title: "Energy dip",
			Message: fmt.Sprintf("Completion drops to %.0f%% in the %s, %.0f points below your average.",
				worst.rate()*100, timeBands[worstIdx].name, deviation*100),
			Recommendation: fmt.Sprintf("Keep the %s for lighter tasks or breaks.", timeBands[worstIdx].name),
			ImpactScore:    deviation * 80,
			DataPoints:     worst.total,
			Trend:          TrendNeedsImprovement,
			CreatedAt:      now,
		})
	}
	return out
}

var durationBuckets = []struct {
	name       string
	minMinutes int // inclusive
	maxMinutes int // exclusive, 0 = unbounded
}{
	{"short (under 30m)", 0, 30},
	{"medium (30-60m)", 30, 60},
	{"long (1-2h)", 60, 120},
	{"extended (2h+)", 120, 0},
}

func durationBucketIndex(minutes int) int {
	for i, b := range durationBuckets {
		if minutes >= b.minMinutes && (b.maxMinutes == 0 || minutes < b.maxMinutes) {
			return i
		}
	}
	return len(durationBuckets) - 1
}

// analyzeTaskDuration finds the duration sweet spot: the bucket with the
// highest completion rate, reported only above an 80% rate with at least
// five samples.
func (a *Analyzer) analyzeTaskDuration(tasks []db.TaskRecord, now time.Time) []Insight {
	buckets := make([]bucketStats, len(durationBuckets))
	for i := range tasks {
		idx := durationBucketIndex(tasks[i].DurationMinutes)
		buckets[idx].total++
		if isCompleted(&tasks[i]) {
			buckets[idx].completed++
		}
	}

	bestIdx := -1
	for i, b := range buckets {
		if b.total == 0 {
			continue
		}
		if bestIdx == -1 || b.rate() > buckets[bestIdx].rate() {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return nil
	}
	best := buckets[bestIdx]
	if best.rate() <= sweetSpotRate || best.total < sweetSpotMinSamples {
		return nil
	}
	return []Insight{{
		Type:  InsightTaskDuration,
		Title: "Duration sweet spot",
		Message: fmt.Sprintf("%s tasks are your sweet spot: you finish %.0f%% of them.",
			durationBuckets[bestIdx].name, best.rate()*100),
		Recommendation: fmt.Sprintf("Break bigger goals into %s blocks.", durationBuckets[bestIdx].name),
		ImpactScore:    best.rate() * 90,
		DataPoints:     best.total,
		Trend:          TrendStable,
		CreatedAt:      now,
	}}
}

// precededByBreak reports whether a relax-category task ends within the 30
// minutes leading up to this task's start.
func precededByBreak(task *db.TaskRecord, tasks []db.TaskRecord) bool {
	windowStart := task.StartTime.Add(-breakProximityWindow)
	for i := range tasks {
		other := &tasks[i]
		if other.ID == task.ID || other.TaskType() != db.TypeRelax {
			continue
		}
		end := other.EstimatedEndTime()
		if !end.Before(windowStart) && !end.After(task.StartTime) {
			return true
		}
	}
	return false
}

// analyzeBreakPattern compares completion after a recent relax task against
// completion without one. Both partitions need at least three tasks.
func (a *Analyzer) analyzeBreakPattern(tasks []db.TaskRecord, now time.Time) []Insight {
	var afterBreak, noBreak bucketStats
	for i := range tasks {
		t := &tasks[i]
		if t.TaskType() == db.TypeRelax {
			continue
		}
		if precededByBreak(t, tasks) {
			afterBreak.total++
			if isCompleted(t) {
				afterBreak.completed++
			}
		} else {
			noBreak.total++
			if isCompleted(t) {
				noBreak.completed++
			}
		}
	}
	if afterBreak.total < breakMinSamples || noBreak.total < breakMinSamples {
		return nil
	}
	diff := afterBreak.rate() - noBreak.rate()
	if diff <= breakDiffThreshold {
		return nil
	}
	return []Insight{{
		Type:  InsightBreakPattern,
		Title: "Breaks are working",
		Message: fmt.Sprintf("Tasks started within 30 minutes of a break complete %.0f%% of the time, versus %.0f%% without one.",
			afterBreak.rate()*100, noBreak.rate()*100),
		Recommendation: "Slot a short relax task before demanding work.",
		ImpactScore:    diff * 85,
		DataPoints:     afterBreak.total + noBreak.total,
		Trend:          TrendImproving,
		CreatedAt:      now,
	}}
}

// analyzeCompletionTrend looks at the last seven days only. At or above the
// 75% weekly goal the insight is positive; below it, it is sized by the
// shortfall. The boundary is inclusive: exactly 75% counts as on-goal.
func (a *Analyzer) analyzeCompletionTrend(tasks []db.TaskRecord, now time.Time) []Insight {
	weekStart := now.Add(-7 * 24 * time.Hour)
	var week bucketStats
	focusMinutes := 0
	for i := range tasks {
		t := &tasks[i]
		if t.StartTime.Before(weekStart) {
			continue
		}
		week.total++
		if isCompleted(t) {
			week.completed++
			focusMinutes += t.DurationMinutes
		}
	}
	if week.total < weeklyMinSamples {
		return nil
	}
	rate := week.rate()
	if rate >= weeklyGoalRate {
		return []Insight{{
			Type:  InsightCompletion,
			Title: "Consistent week",
			Message: fmt.Sprintf("You completed %.0f%% of %d tasks this week, logging %d focused minutes.",
				rate*100, week.total, focusMinutes),
			Recommendation: "Keep the current rhythm going.",
			ImpactScore:    rate * 70,
			DataPoints:     week.total,
			Trend:          TrendImproving,
			CreatedAt:      now,
		}}
	}
	shortfall := weeklyGoalRate - rate
	return []Insight{{
		Type:  InsightCompletion,
		Title: "Room for growth",
		Message: fmt.Sprintf("This week's completion rate is %.0f%% across %d tasks (%d focused minutes), %.0f points short of the %.0f%% goal.",
			rate*100, week.total, focusMinutes, shortfall*100, weeklyGoalRate*100),
		Recommendation: "Plan fewer, smaller tasks until the weekly rate recovers.",
		ImpactScore:    shortfall * 60,
		DataPoints:     week.total,
		Trend:          TrendNeedsImprovement,
		CreatedAt:      now,
	}}
}

// analyzeDayOfWeek surfaces the best/worst weekday spread, requiring at
// least four distinct weekdays in the sample.
func (a *Analyzer) analyzeDayOfWeek(tasks []db.TaskRecord, now time.Time) []Insight {
	var days [7]bucketStats
	for i := range tasks {
		day := tasks[i].StartTime.Weekday()
		days[day].total++
		if isCompleted(&tasks[i]) {
			days[day].completed++
		}
	}

	distinct := 0
	bestDay, worstDay := -1, -1
	for d, b := range days {
		if b.total == 0 {
			continue
		}
		distinct++
		if bestDay == -1 || b.rate() > days[bestDay].rate() {
			bestDay = d
		}
		if worstDay == -1 || b.rate() < days[worstDay].rate() {
			worstDay = d
		}
	}
	if distinct < weekdayMinDistinct {
		return nil
	}
	spread := days[bestDay].rate() - days[worstDay].rate()
	if spread <= weekdaySpreadMin {
		return nil
	}
	return []Insight{{
		Type:  InsightDayOfWeek,
		Title: "Weekday spread",
		Message: fmt.Sprintf("%s is your strongest day (%.0f%% completed); %s is your weakest (%.0f%%).",
			time.Weekday(bestDay), days[bestDay].rate()*100,
			time.Weekday(worstDay), days[worstDay].rate()*100),
		Recommendation: fmt.Sprintf("Front-load important tasks onto %s.", time.Weekday(bestDay)),
		ImpactScore:    spread * 75,
		DataPoints:     days[bestDay].total + days[worstDay].total,
		Trend:          TrendStable,
		CreatedAt:      now,
	}}
}
