package followup

import (
	"database/sql"
	"math"
	"time"

	"student_followup_bot/internal/domain/student"
)

const (
	day   = 24 * time.Hour
	month = 30 * day

	followUpMinDays = 15
	followUpMaxDays = 30 // exclusive

	stage1StalledMinDays = 30
	stage1StalledMaxDays = 45 // inclusive, also the status-change threshold
	stage2StalledMinDays = 45
	stage2StalledMaxDays = 60

	stalledMinMonthsToCohortEnd = 2
	noContactDays               = 30
)

// facts are the derived quantities every rule reads.
type facts struct {
	stage             int
	days              float64
	daysSinceContact  float64
	monthsToCohortEnd float64
	st                *student.Status
}

type rule struct {
	kind  Kind
	match func(f facts) bool
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{KindStage1FollowUp, func(f facts) bool {
		return f.stage == 1 && inFollowUpWindow(f.days) && !f.st.HasTag(TagStage1Step1)
	}},
	{KindStage2FollowUp, func(f facts) bool {
		return f.stage == 2 && inFollowUpWindow(f.days) && !f.st.HasTag(TagStage2Step1)
	}},
	{KindStage1Stalled, func(f facts) bool {
		return f.stage == 1 &&
			f.days >= stage1StalledMinDays && f.days <= stage1StalledMaxDays &&
			stalledContactWindow(f) && !f.st.HasTag(TagStage1Step2)
	}},
	{KindStage2Stalled, func(f facts) bool {
		return f.stage == 2 &&
			f.days >= stage2StalledMinDays && f.days <= stage2StalledMaxDays &&
			stalledContactWindow(f) && !f.st.HasTag(TagStage2Step2)
	}},
	{KindStage1StatusChange, func(f facts) bool {
		return f.stage == 1 && f.days > stage1StalledMaxDays &&
			f.st.HasTag(TagStage1Step1) && f.daysSinceContact > noContactDays
	}},
	{KindStage2StatusChange, func(f facts) bool {
		return f.stage == 2 && f.days > stage2StalledMaxDays &&
			f.st.HasTag(TagStage2Step1) && f.daysSinceContact > noContactDays
	}},
}

// Classify returns the single flow that applies to st at now, or None.
// Records with an unresolvable stage or days-in-stage value classify to None.
func Classify(st *student.Status, now time.Time) Flow {
	if st == nil || !st.DaysInStage.Valid {
		return None
	}
	stage, ok := st.Stage.Number()
	if !ok {
		return None
	}
	days := st.DaysInStage.Float64
	if math.IsNaN(days) || math.IsInf(days, 0) || days < 0 {
		return None
	}

	f := facts{
		stage:             stage,
		days:              days,
		daysSinceContact:  elapsed(st.LastContactDate, now, day),
		monthsToCohortEnd: remaining(st.CohortEndDate, now, month),
		st:                st,
	}
	for _, r := range rules {
		if r.match(f) {
			return FlowFor(r.kind)
		}
	}
	return None
}

func inFollowUpWindow(days float64) bool {
	return days >= followUpMinDays && days < followUpMaxDays
}

func stalledContactWindow(f facts) bool {
	return f.monthsToCohortEnd > stalledMinMonthsToCohortEnd && f.daysSinceContact > noContactDays
}

// elapsed is the time since t in units of unit; an absent date is infinitely far in the past.
func elapsed(t sql.NullTime, now time.Time, unit time.Duration) float64 {
	if !t.Valid {
		return math.Inf(1)
	}
	return float64(now.Sub(t.Time)) / float64(unit)
}

// remaining is the time until t in units of unit; an absent date is infinitely far in the future.
func remaining(t sql.NullTime, now time.Time, unit time.Duration) float64 {
	if !t.Valid {
		return math.Inf(1)
	}
	return float64(t.Time.Sub(now)) / float64(unit)
}
