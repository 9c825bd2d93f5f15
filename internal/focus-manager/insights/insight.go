package insights

import "time"

// InsightType identifies which analyzer produced an insight.
type InsightType string

const (
	InsightTimeOfDay    InsightType = "time_of_day"
	InsightTaskDuration InsightType = "task_duration"
	InsightBreakPattern InsightType = "break_pattern"
	InsightCompletion   InsightType = "completion"
	InsightDayOfWeek    InsightType = "day_of_week"
)

// Trend tags the direction an insight points at.
type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendDeclining        Trend = "declining"
	TrendStable           Trend = "stable"
	TrendNeedsImprovement Trend = "needs_improvement"
)

// Insight is one statistically-derived behavioral observation. Insights are
// produced fresh on every analysis run, never persisted, never mutated.
type Insight struct {
	Type           InsightType `json:"type"`
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	Recommendation string      `json:"recommendation"`
	ImpactScore    float64     `json:"impact_score"` // 0-100, higher = more actionable
	DataPoints     int         `json:"data_points"`
	Trend          Trend       `json:"trend"`
	CreatedAt      time.Time   `json:"created_at"`
}
