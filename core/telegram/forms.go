package telegram

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/formbot/core/engine"
	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/logger"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Forms feeds updates into the conversation engine and executes the
// resulting effects.
type Forms struct {
	engine   *engine.Engine
	registry *Registry
	exec     *Executor
}

// NewForms binds an engine to the transport.
func NewForms(e *engine.Engine, reg *Registry, exec *Executor) *Forms {
	return &Forms{engine: e, registry: reg, exec: exec}
}

// Handle is the handler for every questionnaire command, message and button.
// An engine failure still answers the user with the failure text.
func (f *Forms) Handle(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	ev := EventFromContext(c, f.registry)

	effects, err := f.engine.Handle(ctx, form.UserID(user.ID), ev)
	if err != nil {
		effects = append(effects, form.SendText(f.engine.Machine().Texts().Failure))
	}
	if execErr := f.exec.Execute(ctx, c, effects); execErr != nil {
		return errors.Join(err, fmt.Errorf("telegram: execute effects: %w", execErr))
	}
	return err
}

// Stats replies with the number of sessions in progress and stored profiles.
func (f *Forms) Stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	st, err := f.engine.Store().Stats(ctx)
	if err != nil {
		execErr := f.exec.Execute(ctx, c, []form.Effect{form.SendText(f.engine.Machine().Texts().Failure)})
		return errors.Join(fmt.Errorf("telegram: stats: %w", err), execErr)
	}
	logger.Info(ctx, "tg", "stats",
		slog.Int("active", st.ActiveSessions),
		slog.Int("profiles", st.Profiles),
	)
	text := fmt.Sprintf("Active sessions: %d\nProfiles: %d", st.ActiveSessions, st.Profiles)
	return f.exec.Execute(ctx, c, []form.Effect{form.SendText(text)})
}

// RegisterCommands adds the questionnaire commands and the admin-only
// /stats to the registry Forms was built with.
func (f *Forms) RegisterCommands() {
	f.registry.RegisterCommand("/"+form.CommandStart, Command{Handler: f.Handle, Description: "Start the bot"})
	f.registry.RegisterCommand("/"+form.CommandFillForm, Command{Handler: f.Handle, Description: "Fill in the form"})
	f.registry.RegisterCommand("/"+form.CommandCancel, Command{Handler: f.Handle, Description: "Leave the form"})
	f.registry.RegisterCommand("/"+form.CommandShowData, Command{Handler: f.Handle, Description: "Show your form data"})
	f.registry.RegisterCommand("/stats", Command{Handler: f.Stats, Description: "Form statistics", AdminOnly: true, Hidden: true})
}
