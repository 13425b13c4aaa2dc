package form

import (
	"strconv"
	"unicode"

	"github.com/looplab/fsm"
)

// Edges that are not named after a field.
const (
	EdgeCancel  = "cancel"
	EdgeRestart = "restart"
)

// Age bounds, inclusive.
const (
	MinAge = 4
	MaxAge = 120
)

// Button tokens.
const (
	TokenMale            = "male"
	TokenFemale          = "female"
	TokenUndefinedGender = "undefined_gender"
	TokenSecondary       = "secondary"
	TokenHigher          = "higher"
	TokenNoEducation     = "no_edu"
	TokenYesNews         = "yes_news"
	TokenNoNews          = "no_news"
)

var genderTokens = map[string]Gender{
	TokenMale:            GenderMale,
	TokenFemale:          GenderFemale,
	TokenUndefinedGender: GenderUndefined,
}

var educationTokens = map[string]Education{
	TokenSecondary:   EducationSecondary,
	TokenHigher:      EducationHigher,
	TokenNoEducation: EducationNone,
}

var newsTokens = map[string]bool{
	TokenYesNews: true,
	TokenNoNews:  false,
}

var transitions = buildTransitions()

func buildTransitions() fsm.Events {
	events := make(fsm.Events, 0, len(AwaitingStates)+2)
	for i, st := range AwaitingStates {
		dst := StateCompleted
		if i+1 < len(AwaitingStates) {
			dst = AwaitingStates[i+1]
		}
		events = append(events, fsm.EventDesc{
			Name: string(Fields[i]),
			Src:  []string{string(st)},
			Dst:  string(dst),
		})
	}

	cancelSrc := make([]string, 0, len(AwaitingStates)+1)
	for _, st := range AwaitingStates {
		cancelSrc = append(cancelSrc, string(st))
	}
	cancelSrc = append(cancelSrc, string(StateCompleted))

	return append(events,
		fsm.EventDesc{Name: EdgeCancel, Src: cancelSrc, Dst: string(StateIdle)},
		fsm.EventDesc{Name: EdgeRestart, Src: []string{string(StateCompleted)}, Dst: string(StateAwaitingName)},
	)
}

// Next returns the state reached by taking edge from s. The second result
// is false when the edge does not leave s; s is returned unchanged then.
func Next(s State, edge string) (State, bool) {
	for _, e := range transitions {
		if e.Name != edge {
			continue
		}
		for _, src := range e.Src {
			if src == string(s) {
				return State(e.Dst), true
			}
		}
	}
	return s, false
}

// NewFSM returns a state machine positioned at initial and driven by the edge table.
func NewFSM(initial State) *fsm.FSM {
	return fsm.NewFSM(string(initial), transitions, nil)
}

// Step describes how an awaiting state validates and extracts its answer.
type Step struct {
	State   State
	Field   Field
	Expects EventKind
	Accept  func(Event) bool
	Extract func(Event) any
}

var steps = map[State]Step{
	StateAwaitingName: {
		State:   StateAwaitingName,
		Field:   FieldName,
		Expects: EventText,
		Accept:  func(e Event) bool { return e.Kind == EventText && isAlpha(e.Text) },
		Extract: func(e Event) any { return e.Text },
	},
	StateAwaitingAge: {
		State:   StateAwaitingAge,
		Field:   FieldAge,
		Expects: EventText,
		Accept: func(e Event) bool {
			_, ok := parseAge(e)
			return ok
		},
		Extract: func(e Event) any {
			age, _ := parseAge(e)
			return age
		},
	},
	StateAwaitingGender: {
		State:   StateAwaitingGender,
		Field:   FieldGender,
		Expects: EventButton,
		Accept: func(e Event) bool {
			_, ok := genderTokens[e.Token]
			return e.Kind == EventButton && ok
		},
		Extract: func(e Event) any { return genderTokens[e.Token] },
	},
	StateAwaitingPhoto: {
		State:   StateAwaitingPhoto,
		Field:   FieldPhoto,
		Expects: EventPhoto,
		Accept:  func(e Event) bool { return e.Kind == EventPhoto && !e.Photo.Empty() },
		Extract: func(e Event) any { return e.Photo },
	},
	StateAwaitingEducation: {
		State:   StateAwaitingEducation,
		Field:   FieldEducation,
		Expects: EventButton,
		Accept: func(e Event) bool {
			_, ok := educationTokens[e.Token]
			return e.Kind == EventButton && ok
		},
		Extract: func(e Event) any { return educationTokens[e.Token] },
	},
	StateAwaitingNewsOptIn: {
		State:   StateAwaitingNewsOptIn,
		Field:   FieldWishNews,
		Expects: EventButton,
		Accept: func(e Event) bool {
			_, ok := newsTokens[e.Token]
			return e.Kind == EventButton && ok
		},
		Extract: func(e Event) any { return newsTokens[e.Token] },
	},
}

// isAlpha matches non-empty strings made of letters only.
func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func parseAge(e Event) (int, bool) {
	if e.Kind != EventText || e.Text == "" {
		return 0, false
	}
	for _, r := range e.Text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	age, err := strconv.Atoi(e.Text)
	if err != nil || age < MinAge || age > MaxAge {
		return 0, false
	}
	return age, true
}

// Machine binds the step table to a set of texts.
type Machine struct {
	texts Texts
}

// NewMachine returns a machine using texts, with empty strings defaulted.
func NewMachine(texts Texts) *Machine {
	return &Machine{texts: texts.Merge()}
}

// Texts returns the texts in use.
func (m *Machine) Texts() Texts {
	return m.texts
}

// Step returns the input step for an awaiting state.
func (m *Machine) Step(s State) (Step, bool) {
	st, ok := steps[s]
	return st, ok
}

// Prompt returns the effects sent when entering s.
func (m *Machine) Prompt(s State) []Effect {
	t := m.texts
	switch s {
	case StateAwaitingName:
		return []Effect{SendText(t.AskName)}
	case StateAwaitingAge:
		return []Effect{SendText(t.AskAge)}
	case StateAwaitingGender:
		return []Effect{SendTextWithChoices(t.AskGender,
			[]Choice{{Label: t.LabelMale, Token: TokenMale}, {Label: t.LabelFemale, Token: TokenFemale}},
			[]Choice{{Label: t.LabelUndefined, Token: TokenUndefinedGender}},
		)}
	case StateAwaitingPhoto:
		// The gender keyboard is removed so it cannot be pressed again.
		return []Effect{DeletePreviousMessage(), SendText(t.AskPhoto)}
	case StateAwaitingEducation:
		return []Effect{SendTextWithChoices(t.AskEducation,
			[]Choice{{Label: t.LabelSecondary, Token: TokenSecondary}, {Label: t.LabelHigher, Token: TokenHigher}},
			[]Choice{{Label: t.LabelNoEdu, Token: TokenNoEducation}},
		)}
	case StateAwaitingNewsOptIn:
		return []Effect{EditPreviousMessage(t.AskNews,
			[]Choice{{Label: t.LabelYes, Token: TokenYesNews}, {Label: t.LabelNo, Token: TokenNoNews}},
		)}
	}
	return nil
}

// Rejection returns the retry prompt for an awaiting state.
func (m *Machine) Rejection(s State) Effect {
	t := m.texts
	switch s {
	case StateAwaitingName:
		return SendText(t.RejectName)
	case StateAwaitingAge:
		return SendText(t.RejectAge)
	case StateAwaitingGender:
		return SendText(t.RejectGender)
	case StateAwaitingPhoto:
		return SendText(t.RejectPhoto)
	case StateAwaitingEducation:
		return SendText(t.RejectEducation)
	case StateAwaitingNewsOptIn:
		return SendText(t.RejectNews)
	}
	return SendText(t.NotUnderstood)
}

// Completion returns the effects sent once the profile is stored.
func (m *Machine) Completion() []Effect {
	return []Effect{
		EditPreviousMessage(m.texts.Saved),
		SendText(m.texts.ShowDataHint),
	}
}
