package followup

// Kind names the follow-up action a record was classified into.
type Kind string

const (
	KindNone               Kind = "NONE"
	KindStage1FollowUp     Kind = "STAGE1_FOLLOWUP"
	KindStage2FollowUp     Kind = "STAGE2_FOLLOWUP"
	KindStage1Stalled      Kind = "STAGE1_STALLED"
	KindStage2Stalled      Kind = "STAGE2_STALLED"
	KindStage1StatusChange Kind = "STAGE1_STATUS_CHANGE"
	KindStage2StatusChange Kind = "STAGE2_STATUS_CHANGE"
)

// Follow-up tags stored in the record's multi-select field. Their presence marks a step as already sent.
const (
	TagStage1Step1 = "ST1 - Message 1"
	TagStage1Step2 = "ST1 - Msg 2"
	TagStage2Step1 = "ST2 - Message 1"
	TagStage2Step2 = "ST2 - Msg 2"
)

// Template selects the message copy family for a flow.
type Template string

const (
	TemplateNone         Template = ""
	TemplateStep1Nudge   Template = "STEP1_NUDGE"
	TemplateStalledNudge Template = "STALLED_NUDGE"
)

// Transition is the write-back applied to the record once a flow is acted on.
type Transition string

const (
	TransitionNone             Transition = ""
	TransitionContactAndTag    Transition = "CONTACT_AND_TAG"   // set contact date, then add Tag
	TransitionPlacementMissing Transition = "PLACEMENT_MISSING" // set placement status to Missing
)

// Flow is the outcome of classifying one record.
type Flow struct {
	Kind       Kind
	Stage      int
	Tag        string
	Template   Template
	Transition Transition
}

// None is the flow for records that match no rule.
var None = Flow{Kind: KindNone}

var flows = map[Kind]Flow{
	KindStage1FollowUp:     {Kind: KindStage1FollowUp, Stage: 1, Tag: TagStage1Step1, Template: TemplateStep1Nudge, Transition: TransitionContactAndTag},
	KindStage2FollowUp:     {Kind: KindStage2FollowUp, Stage: 2, Tag: TagStage2Step1, Template: TemplateStep1Nudge, Transition: TransitionContactAndTag},
	KindStage1Stalled:      {Kind: KindStage1Stalled, Stage: 1, Tag: TagStage1Step2, Template: TemplateStalledNudge, Transition: TransitionContactAndTag},
	KindStage2Stalled:      {Kind: KindStage2Stalled, Stage: 2, Tag: TagStage2Step2, Template: TemplateStalledNudge, Transition: TransitionContactAndTag},
	KindStage1StatusChange: {Kind: KindStage1StatusChange, Stage: 1, Transition: TransitionPlacementMissing},
	KindStage2StatusChange: {Kind: KindStage2StatusChange, Stage: 2, Transition: TransitionPlacementMissing},
}

// FlowFor returns the flow definition for kind, or None for unknown kinds.
func FlowFor(kind Kind) Flow {
	if f, ok := flows[kind]; ok {
		return f
	}
	return None
}

func (f Flow) IsNone() bool {
	return f.Kind == KindNone || f.Kind == ""
}

// SendsMessage reports whether the flow produces an outward message.
func (f Flow) SendsMessage() bool {
	return f.Template != TemplateNone
}
