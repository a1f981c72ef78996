package followup

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student_followup_bot/internal/domain/student"
)

func TestComposer_Step1NudgeUsesCoachLink(t *testing.T) {
	c := NewComposer(DefaultCoachLinks())
	st := &student.Status{ID: "page-1", SlackID: "U123", Coach: "Melissa Zwanck"}
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	p := c.Compose(FlowFor(KindStage1FollowUp), st, at)

	require.True(t, p.HasMessage())
	assert.Contains(t, *p.Message, "<@U123>")
	assert.Contains(t, *p.Message, "https://calendly.com/melissazwanck/mentoring")
	assert.Contains(t, *p.Message, GuideLink)
	assert.Contains(t, *p.Message, "etapa 1")

	want := NotificationPayload{
		Message:     p.Message,
		RecipientID: "U123",
		CoachID:     "Melissa Zwanck",
		Timestamp:   at,
		StudentID:   "page-1",
		Flow:        FlowFor(KindStage1FollowUp),
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestComposer_UnknownCoachGetsDefaultLink(t *testing.T) {
	c := NewComposer(nil)
	st := &student.Status{ID: "page-2", SlackID: "U9", Coach: "Somebody New"}

	p := c.Compose(FlowFor(KindStage2FollowUp), st, time.Now())

	require.True(t, p.HasMessage())
	assert.Contains(t, *p.Message, DefaultSchedulingLink)
	assert.Contains(t, *p.Message, "etapa 2")
}

func TestComposer_StalledNudge(t *testing.T) {
	c := NewComposer(nil)
	st := &student.Status{ID: "page-3", SlackID: "U7"}

	for _, kind := range []Kind{KindStage1Stalled, KindStage2Stalled} {
		p := c.Compose(FlowFor(kind), st, time.Now())
		require.True(t, p.HasMessage(), kind)
		assert.Contains(t, *p.Message, "<@U7>")
		assert.Contains(t, *p.Message, "siguientes etapas")
	}
}

func TestComposer_StatusChangeHasNoMessage(t *testing.T) {
	c := NewComposer(nil)
	st := &student.Status{ID: "page-4", SlackID: "U1", Coach: "Cristina Crespo"}

	for _, kind := range []Kind{KindStage1StatusChange, KindStage2StatusChange} {
		p := c.Compose(FlowFor(kind), st, time.Now())
		assert.False(t, p.HasMessage(), kind)
		assert.Nil(t, p.Message)
		assert.Equal(t, "page-4", p.StudentID)
	}
}

func TestComposer_Deterministic(t *testing.T) {
	c := NewComposer(nil)
	st := &student.Status{ID: "page-5", SlackID: "U5", Coach: "Yoaní Palmás"}
	at := time.Unix(1700000000, 0)

	a := c.Compose(FlowFor(KindStage1FollowUp), st, at)
	b := c.Compose(FlowFor(KindStage1FollowUp), st, at)
	assert.Equal(t, *a.Message, *b.Message)
}
