package notion

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"student_followup_bot/internal/domain/student"
)

// Property labels of the student tracking database.
const (
	LabelName              = "Student"
	LabelSlackID           = "Slack ID"
	LabelCoach             = "GeekFORCE Coach"
	LabelStage             = "GeekFORCE Stage"
	LabelDaysInStageFormat = "Days in Stage %d"
	LabelLastContact       = "Last Contact"
	LabelCohortEnd         = "Cohort end date"
	LabelFollowUpTags      = "GF Follow up"
	LabelPlacementStatus   = "Placement status"
	LabelEducationalStatus = "Educational Status"

	EducationalStatusGraduated = "Graduated"
)

// StudentRepository implements student.Repository on top of a Notion database.
type StudentRepository struct {
	client     *Client
	databaseID string
	logger     *logrus.Entry
}

func NewStudentRepository(client *Client, databaseID string, logger *logrus.Entry) *StudentRepository {
	return &StudentRepository{client: client, databaseID: databaseID, logger: logger}
}

// CandidateFilter selects graduated students still waiting to be placed.
func CandidateFilter() AndFilter {
	return AndFilter{And: []PropertyFilter{
		StatusEquals(LabelPlacementStatus, student.PlacementToBePlaced),
		SelectEquals(LabelEducationalStatus, EducationalStatusGraduated),
	}}
}

func (r *StudentRepository) ListCandidates(ctx context.Context) ([]*student.Status, error) {
	pages, err := r.client.QueryAll(ctx, r.databaseID, CandidateFilter())
	if err != nil {
		return nil, fmt.Errorf("error listing follow-up candidates: %w", err)
	}
	students := make([]*student.Status, 0, len(pages))
	for i := range pages {
		st := ToStudentStatus(&pages[i])
		if !st.DaysInStage.Valid {
			r.logger.WithFields(logrus.Fields{"student_id": st.ID, "stage": st.Stage}).Debug("Days in stage could not be resolved")
		}
		students = append(students, st)
	}
	r.logger.WithField("count", len(students)).Info("Fetched follow-up candidates")
	return students, nil
}

func (r *StudentRepository) SetLastContact(ctx context.Context, id string, at time.Time) error {
	return r.client.UpdatePage(ctx, id, map[string]PropertyValue{LabelLastContact: DateValue(at)})
}

// AddTag re-reads the page so the update carries the current tag set. Two overlapping
// writers can still lose an update; runs are expected to be serialized.
func (r *StudentRepository) AddTag(ctx context.Context, id string, tag string) (bool, error) {
	page, err := r.client.RetrievePage(ctx, id)
	if err != nil {
		return false, err
	}
	tags := Extract(page.Properties, LabelFollowUpTags).List()
	for _, t := range tags {
		if t == tag {
			return false, nil
		}
	}
	updated := append(append(make([]string, 0, len(tags)+1), tags...), tag)
	if err := r.client.UpdatePage(ctx, id, map[string]PropertyValue{LabelFollowUpTags: MultiSelectValue(updated)}); err != nil {
		return false, err
	}
	return true, nil
}

func (r *StudentRepository) SetPlacementStatus(ctx context.Context, id string, status string) error {
	return r.client.UpdatePage(ctx, id, map[string]PropertyValue{LabelPlacementStatus: StatusValue(status)})
}

// ToStudentStatus maps a raw page onto the canonical student view.
func ToStudentStatus(page *Page) *student.Status {
	props := page.Properties
	text := func(label string) string {
		s, _ := Extract(props, label).Text()
		return s
	}
	date := func(label string) sql.NullTime {
		t, ok := Extract(props, label).Date()
		return sql.NullTime{Time: t, Valid: ok}
	}

	st := &student.Status{
		ID:              page.ID,
		Name:            text(LabelName),
		SlackID:         text(LabelSlackID),
		Coach:           text(LabelCoach),
		Stage:           student.Stage(text(LabelStage)),
		LastContactDate: date(LabelLastContact),
		CohortEndDate:   date(LabelCohortEnd),
		Tags:            Extract(props, LabelFollowUpTags).List(),
	}
	if n, ok := st.Stage.Number(); ok {
		if days, ok := Extract(props, fmt.Sprintf(LabelDaysInStageFormat, n)).Number(); ok {
			st.DaysInStage = sql.NullFloat64{Float64: days, Valid: true}
		}
	}
	return st
}
