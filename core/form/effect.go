package form

// EffectKind classifies outbound effects.
type EffectKind int

const (
	EffectSendText EffectKind = iota
	EffectSendTextWithChoices
	EffectSendPhotoWithCaption
	// EffectEditPreviousMessage rewrites the message that carried the pressed button.
	EffectEditPreviousMessage
	// EffectDeletePreviousMessage removes the message that carried the pressed button.
	EffectDeletePreviousMessage
)

// String returns the log-friendly name of the kind.
func (k EffectKind) String() string {
	switch k {
	case EffectSendText:
		return "send_text"
	case EffectSendTextWithChoices:
		return "send_choices"
	case EffectSendPhotoWithCaption:
		return "send_photo"
	case EffectEditPreviousMessage:
		return "edit_previous"
	case EffectDeletePreviousMessage:
		return "delete_previous"
	default:
		return "unknown"
	}
}

// Choice is a labelled button; Token is what comes back when it is pressed.
type Choice struct {
	Label string
	Token string
}

// Effect is an outbound intent. The engine only returns effects; the
// channel executes them in order.
type Effect struct {
	Kind    EffectKind
	Text    string
	Choices [][]Choice
	Photo   PhotoRef
}

// SendText builds a plain text effect.
func SendText(text string) Effect {
	return Effect{Kind: EffectSendText, Text: text}
}

// SendTextWithChoices builds a text effect with rows of buttons.
func SendTextWithChoices(text string, rows ...[]Choice) Effect {
	return Effect{Kind: EffectSendTextWithChoices, Text: text, Choices: rows}
}

// SendPhotoWithCaption builds a photo effect.
func SendPhotoWithCaption(photo PhotoRef, caption string) Effect {
	return Effect{Kind: EffectSendPhotoWithCaption, Photo: photo, Text: caption}
}

// EditPreviousMessage builds an edit effect; rows may be empty to drop the keyboard.
func EditPreviousMessage(text string, rows ...[]Choice) Effect {
	return Effect{Kind: EffectEditPreviousMessage, Text: text, Choices: rows}
}

// DeletePreviousMessage builds a delete effect.
func DeletePreviousMessage() Effect {
	return Effect{Kind: EffectDeletePreviousMessage}
}

// Tokens flattens the choice rows into tokens in display order.
func (e Effect) Tokens() []string {
	var out []string
	for _, row := range e.Choices {
		for _, c := range row {
			out = append(out, c.Token)
		}
	}
	return out
}
