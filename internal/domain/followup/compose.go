package followup

import (
	"fmt"
	"time"

	"student_followup_bot/internal/domain/student"
)

// Composer renders notification payloads. It performs no I/O.
type Composer struct {
	links    *CoachLinks
	guideURL string
}

func NewComposer(links *CoachLinks) *Composer {
	if links == nil {
		links = DefaultCoachLinks()
	}
	return &Composer{links: links, guideURL: GuideLink}
}

// Compose builds the payload for flow and st, stamped with at.
func (c *Composer) Compose(flow Flow, st *student.Status, at time.Time) NotificationPayload {
	p := NotificationPayload{
		RecipientID: st.SlackID,
		CoachID:     st.Coach,
		Timestamp:   at,
		StudentID:   st.ID,
		Flow:        flow,
	}
	if msg, ok := c.render(flow, st); ok {
		p.Message = &msg
	}
	return p
}

func (c *Composer) render(flow Flow, st *student.Status) (string, bool) {
	switch flow.Template {
	case TemplateStep1Nudge:
		link := c.links.LinkFor(st.Coach)
		if flow.Stage == 1 {
			return fmt.Sprintf(stage1NudgeCopy, st.SlackID, link, c.guideURL), true
		}
		return fmt.Sprintf(stage2NudgeCopy, st.SlackID, link, c.guideURL), true
	case TemplateStalledNudge:
		return fmt.Sprintf(stalledNudgeCopy, st.SlackID), true
	default:
		return "", false
	}
}

const stage1NudgeCopy = "Hola <@%s>, ¿cómo estás? Te escribo porque he notado que llevas varias semanas en la etapa 1 del proceso de Career Support.\n\n" +
	"¿Tienes listos tu CV, LinkedIn y GitHub para seguir avanzando? Si es así, envíame tus perfiles por aquí para echarles un vistazo.\n\n" +
	"Tienes que comenzar la etapa 2 (preparación para entrevistas) lo antes posible. Agenda la sesión (<%s|Calendly>) y prepárate con estos materiales (<%s|Guía GeekFORCE Student Page>).\n\n" +
	"Si tienes algún bloqueo que te impida avanzar, cuéntame y te ayudo a resolverlo :)\n\n" +
	"Espero tu respuesta para saber en qué punto te encuentras."

const stage2NudgeCopy = "Hola <@%s>, ¿cómo estás? Te escribo porque he notado que llevas varias semanas en la etapa 2 del proceso de Career Support.\n\n" +
	"¿Hay algo que te impida seguir avanzando? Si tienes algún bloqueo, cuéntame para poder ayudarte.\n\n" +
	"Tienes que completar la preparación para entrevistas lo antes posible para pasar a la etapa 3 (guía y acompañamiento durante la búsqueda de trabajo). Puedes agendar una sesión (<%s|Calendly>) y repasar los materiales (<%s|Guía GeekFORCE Student Page>).\n\n" +
	"Espero tu respuesta para saber en qué punto te encuentras :)"

const stalledNudgeCopy = "Hola <@%s>, hace mucho que no avanzas en el proceso de Career Support 😔\n\n" +
	"¿Te interesa continuar con las siguientes etapas?"
