package directive

import (
	"strings"

	"github.com/wolfman30/pawcare-booking-chat/internal/action"
)

// completionPhrases mark a finished transaction; nothing further is offered.
var completionPhrases = []string{
	"has been successfully submitted",
	"confirmation email has been sent",
}

// serviceQuestionPhrases appear in text_only replies that talk about picking
// a service without carrying the list itself.
var serviceQuestionPhrases = []string{"which service", "specify which service", "list of services"}

// Turn is the conversational context a reply is classified in.
type Turn struct {
	Action action.Action
	// PriorReply is the previous assistant message, if any.
	PriorReply string
	// PriorKind is the directive classified from PriorReply. A pet question
	// that already produced a Pet directive is not carried into this turn.
	PriorKind Kind
}

// Result is the outcome of classifying one assistant reply.
type Result struct {
	Directive         Directive
	ShowDateTimePanel bool
	// Display is the text to show in the transcript.
	Display string
	// Type is the structured payload type, empty for plain text.
	Type string
	// AwaitsServiceList is set when a text_only reply talks about choosing a
	// service but carries no list to render.
	AwaitsServiceList bool
}

// Classifier turns assistant replies into directives.
type Classifier struct {
	schedule ScheduleDetector
}

// NewClassifier builds a classifier. extraPhrases extend the plain-text
// scheduling phrase list.
func NewClassifier(extraPhrases ...string) *Classifier {
	return &Classifier{schedule: NewScheduleDetector(extraPhrases...)}
}

var defaultClassifier = NewClassifier()

// Classify classifies reply with the default phrase list.
func Classify(reply string, current action.Action) Result {
	return defaultClassifier.Classify(reply, Turn{Action: current})
}

// Classify decides which panel, if any, follows reply. A date/time panel and
// a selection panel are never both returned; date/time wins.
func (c *Classifier) Classify(reply string, turn Turn) Result {
	res := Result{Directive: None{}, Display: reply}

	payload, structured := parsePayload(reply)
	if structured {
		res.Type = payload.Type
		if display := payload.displayText(); display != "" {
			res.Display = display
		}
	}

	if turn.Action.SuppressesSelection() {
		return res
	}
	if containsAny(strings.ToLower(reply), completionPhrases) {
		return res
	}

	if structured {
		res.Directive = c.fromPayload(payload)
		res.ShowDateTimePanel = c.schedule.FromPayload(payload)
		res.AwaitsServiceList = payload.Type == TypeTextOnly &&
			containsAny(strings.ToLower(payload.Intro), serviceQuestionPhrases)
	} else {
		res.Directive = c.fromText(reply, turn)
		res.ShowDateTimePanel = c.schedule.FromText(reply)
	}

	if res.ShowDateTimePanel {
		res.Directive = None{}
	}
	return res
}

func (c *Classifier) fromPayload(p *Payload) Directive {
	switch p.Type {
	case TypeTextOnly:
		if !mentionsPetSelection(p.Intro) {
			return None{}
		}
		if pairs := ExtractPets(p.Intro + "\n" + p.Footer); len(pairs) > 0 {
			return Pet{Choices: petOptionsFromPairs(pairs)}
		}
		return None{}
	case TypeTextWithList:
		if !mentionsPetSelection(p.Intro) || len(p.Items) == 0 {
			return None{}
		}
		return nonEmpty(Pet{Choices: petOptions(p.Items)})
	case TypeServiceList:
		return nonEmpty(Service{Choices: serviceOptions(p.Items)})
	case TypeProfessionalList:
		return nonEmpty(Professional{Choices: professionalOptions(p.Items)})
	case TypePetList:
		return nonEmpty(Pet{Choices: petOptions(p.Items)})
	case TypeConfirmation:
		return NewConfirmation()
	default:
		return None{}
	}
}

func (c *Classifier) fromText(reply string, turn Turn) Directive {
	priorAsked := turn.PriorKind != KindPet && mentionsPetSelection(turn.PriorReply)
	if !mentionsPetSelection(reply) && !priorAsked {
		return None{}
	}
	pairs := ExtractPets(reply)
	if len(pairs) == 0 {
		return None{}
	}
	return Pet{Choices: petOptionsFromPairs(pairs)}
}

func nonEmpty(d Directive) Directive {
	if len(d.Options()) == 0 {
		return None{}
	}
	return d
}
