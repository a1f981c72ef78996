package student

import (
	"database/sql"
	"strconv"
	"strings"
)

// Stage is the support-process phase a student is in, as labelled in the record store ("Stage 1", "Stage 2", ...).
type Stage string

const (
	Stage1 Stage = "Stage 1" // CV / profile preparation
	Stage2 Stage = "Stage 2" // interview preparation
)

// Number returns the numeric suffix of the stage label. ok is false when the label
// does not have the "Stage <n>" shape.
func (s Stage) Number() (n int, ok bool) {
	fields := strings.Fields(string(s))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "stage") {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// PlacementStatus values written back to the record store.
const (
	PlacementToBePlaced = "To be placed"
	PlacementMissing    = "Missing"
)

// Status is the canonical, flattened view of one student record used for classification.
// It is built fresh on every run and never mutated afterwards.
type Status struct {
	ID              string
	Name            string
	SlackID         string
	Coach           string
	Stage           Stage
	DaysInStage     sql.NullFloat64 // invalid when the stage or its days field could not be resolved
	LastContactDate sql.NullTime
	CohortEndDate   sql.NullTime
	Tags            []string
}

// HasTag reports whether the record already carries tag.
func (s *Status) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
