package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/telegram/sender"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot
}

func message(text string) tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{
		ID:     10,
		Sender: &tele.User{ID: 5},
		Chat:   &tele.Chat{ID: 5, Type: tele.ChatPrivate},
		Text:   text,
	}}
}

func callback(data string) tele.Update {
	return tele.Update{ID: 2, Callback: &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: 5},
		Message: &tele.Message{ID: 11, Chat: &tele.Chat{ID: 5, Type: tele.ChatPrivate}},
		Data:    data,
	}}
}

func testRegistry() *Registry {
	reg := NewRegistry()
	noop := func(tele.Context) error { return nil }
	reg.RegisterCommand("/fillform", Command{Handler: noop, Description: "Fill in the form", Aliases: []string{"form"}})
	reg.RegisterCommand("/cancel", Command{Handler: noop, Description: "Leave the form"})
	reg.RegisterCommand("/stats", Command{Handler: noop, Description: "Stats", AdminOnly: true, Hidden: true})
	return reg
}

func TestEventFromContext(t *testing.T) {
	bot := offlineBot(t)
	reg := testRegistry()

	photo := message("")
	photo.Message.Photo = &tele.Photo{File: tele.File{FileID: "file", UniqueID: "uniq"}}
	sticker := message("")
	sticker.Message.Sticker = &tele.Sticker{}

	cases := []struct {
		name string
		upd  tele.Update
		want form.Event
	}{
		{"text", message("Anna"), form.Text("Anna")},
		{"known command", message("/fillform"), form.Command("fillform")},
		{"command with bot name", message("/cancel@form_bot now"), form.Command("cancel")},
		{"alias", message("/form"), form.Command("fillform")},
		{"unknown command is text", message("/unknown"), form.Text("/unknown")},
		{"photo", photo, form.Photo("file", "uniq")},
		{"sticker", sticker, form.Other()},
		{"button", callback("\fchoice|female"), form.Button("female")},
		{"bare callback data", callback("yes_news"), form.Button("yes_news")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EventFromContext(bot.NewContext(tc.upd), reg))
		})
	}
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/start", CommandName("/Start"))
	assert.Equal(t, "/cancel", CommandName("  /cancel@form_bot\nplease"))
	assert.Equal(t, "", CommandName("hello /start"))
	assert.Equal(t, "", CommandName("/"))
	assert.Equal(t, "", CommandName(""))
}

func TestRegistryRejectsInvalidAndDuplicates(t *testing.T) {
	reg := testRegistry()
	noop := func(tele.Context) error { return nil }
	reg.RegisterCommand("showdata", Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/empty", Command{Handler: noop})
	reg.RegisterCommand("/cancel", Command{Handler: noop, Description: "second"})

	assert.Len(t, reg.Commands(), 3)
	assert.Equal(t, "Leave the form", reg.Commands()["/cancel"].Description)
}

func TestListCommandsHidesAdminOnly(t *testing.T) {
	reg := testRegistry()
	visible := reg.ListCommands(true)
	assert.Equal(t, []tele.Command{
		{Text: "cancel", Description: "Leave the form"},
		{Text: "fillform", Description: "Fill in the form"},
	}, visible)
	assert.Len(t, reg.ListCommands(false), 3)
}

func actions(steps []sender.Step) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Action)
	}
	return out
}

func TestStepsForCallbackAnswerFirst(t *testing.T) {
	bot := offlineBot(t)
	m := form.NewMachine(form.Texts{})
	c := bot.NewContext(callback("\fchoice|female"))

	effects := append(m.Prompt(form.StateAwaitingPhoto), m.Completion()...)
	assert.Equal(t, []string{
		"answer_callback", "delete_previous", "send_text", "edit_previous", "send_text",
	}, actions(Steps(c, effects)))
}

func TestStepsWithoutCallback(t *testing.T) {
	bot := offlineBot(t)
	m := form.NewMachine(form.Texts{})
	c := bot.NewContext(message("Anna"))

	effects := append(m.Prompt(form.StateAwaitingPhoto), m.Prompt(form.StateAwaitingNewsOptIn)...)
	// Delete has nothing to act on; edit degrades to a new message.
	steps := Steps(c, effects)
	assert.Equal(t, []string{"send_text", "edit_previous"}, actions(steps))
	assert.Equal(t, "sendMessage", steps[1].Endpoint)
}
