package telegram

import (
	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// EventFromContext converts an update into a questionnaire event. Only
// commands present in reg become command events; any other slash text is
// ordinary text for the current step to judge.
func EventFromContext(c tele.Context, reg *Registry) form.Event {
	if c.Callback() != nil {
		return form.Button(callbacks.CallbackPayload(c))
	}

	msg := c.Message()
	if msg == nil {
		return form.Other()
	}
	if msg.Photo != nil {
		return form.Photo(msg.Photo.FileID, msg.Photo.UniqueID)
	}
	if msg.Text == "" {
		return form.Other()
	}
	if reg != nil {
		if key, _, ok := reg.LookupCommand(msg.Text); ok {
			return form.Command(key)
		}
	}
	return form.Text(msg.Text)
}
