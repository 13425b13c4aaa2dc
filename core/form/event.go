package form

import "strings"

// Command names understood by the engine.
const (
	CommandStart    = "start"
	CommandFillForm = "fillform"
	CommandCancel   = "cancel"
	CommandShowData = "showdata"
)

// EventKind classifies inbound events.
type EventKind int

const (
	// EventOther covers content the questionnaire never accepts (stickers, documents, ...).
	EventOther EventKind = iota
	EventCommand
	EventText
	EventPhoto
	EventButton
)

// String returns the log-friendly name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventButton:
		return "button"
	default:
		return "other"
	}
}

// Event is an inbound user action delivered by the channel.
type Event struct {
	Kind    EventKind
	Command string
	Text    string
	Photo   PhotoRef
	Token   string
}

// Command builds a command event; a leading slash is ignored.
func Command(name string) Event {
	return Event{Kind: EventCommand, Command: strings.TrimPrefix(strings.TrimSpace(name), "/")}
}

// Text builds a plain text message event.
func Text(text string) Event {
	return Event{Kind: EventText, Text: text}
}

// Photo builds a photo message event.
func Photo(id, uniqueID string) Event {
	return Event{Kind: EventPhoto, Photo: PhotoRef{ID: id, UniqueID: uniqueID}}
}

// Button builds a button press event carrying the pressed token.
func Button(token string) Event {
	return Event{Kind: EventButton, Token: token}
}

// Other builds an event for unsupported content.
func Other() Event {
	return Event{Kind: EventOther}
}

// IsCommand reports whether the event is the named command.
func (e Event) IsCommand(name string) bool {
	return e.Kind == EventCommand && strings.EqualFold(e.Command, name)
}
