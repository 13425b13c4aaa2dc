// Package engine turns inbound questionnaire events into outbound effects.
// It performs no channel I/O; the transport executes the returned effects.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/logger"
	"github.com/m3rciful/formbot/core/metrics"
	"github.com/m3rciful/formbot/core/state"
)

const component = "form"

// Engine dispatches events against the session store.
type Engine struct {
	store   state.Store
	machine *form.Machine
}

// New returns an engine over store. A nil machine uses the default texts.
func New(store state.Store, machine *form.Machine) *Engine {
	if machine == nil {
		machine = form.NewMachine(form.Texts{})
	}
	return &Engine{store: store, machine: machine}
}

// Machine exposes the step table and texts in use.
func (e *Engine) Machine() *form.Machine { return e.machine }

// Store exposes the session store.
func (e *Engine) Store() state.Store { return e.store }

// Handle processes one event for user. Events of one user are serialized;
// rejected input is answered with effects, never with an error. A non-nil
// error means a store invariant broke or the profile repository failed.
func (e *Engine) Handle(ctx context.Context, user form.UserID, ev form.Event) ([]form.Effect, error) {
	unlock := e.store.Lock(user)
	defer unlock()

	from := e.store.State(ctx, user)
	metrics.IncEvent(ev.Kind.String(), string(from))

	effects, err := e.dispatch(ctx, user, from, ev)
	to := e.store.State(ctx, user)
	if from != to {
		metrics.IncTransition(string(from), string(to))
	}

	attrs := []slog.Attr{
		slog.Int64("user_id", int64(user)),
		slog.String("kind", ev.Kind.String()),
		slog.String("state", string(from)),
		slog.String("next", string(to)),
		slog.Int("effects", len(effects)),
	}
	if run := e.store.RunID(user); run != "" {
		attrs = append(attrs, slog.String("run_id", run))
	}
	if ev.Kind == form.EventCommand {
		attrs = append(attrs, slog.String("command", ev.Command))
	}
	if err != nil {
		cause := "storage"
		if errors.Is(err, state.ErrInvalidTransition) || errors.Is(err, state.ErrIncompleteSession) {
			cause = "invariant"
		}
		metrics.IncError(cause)
		attrs = append(attrs, slog.String("err", err.Error()), slog.String("err_code", cause))
		logger.Error(ctx, component, "handle.fail", attrs...)
		return effects, err
	}
	logger.Debug(ctx, component, "handle", attrs...)
	return effects, nil
}

func (e *Engine) dispatch(ctx context.Context, user form.UserID, current form.State, ev form.Event) ([]form.Effect, error) {
	texts := e.machine.Texts()

	switch {
	case ev.IsCommand(form.CommandCancel):
		if current != form.StateIdle {
			metrics.IncCancelled()
		}
		e.store.Cancel(ctx, user)
		return []form.Effect{form.SendText(texts.Cancelled)}, nil

	case ev.IsCommand(form.CommandFillForm):
		e.store.StartSequence(ctx, user)
		return e.machine.Prompt(form.StateAwaitingName), nil

	case ev.IsCommand(form.CommandShowData):
		eff, err := e.render(ctx, user)
		if err != nil {
			return nil, err
		}
		return []form.Effect{eff}, nil
	}

	step, ok := e.machine.Step(current)
	if !ok {
		if ev.IsCommand(form.CommandStart) {
			return []form.Effect{form.SendText(texts.Welcome)}, nil
		}
		return []form.Effect{form.SendText(texts.NotUnderstood)}, nil
	}

	if !step.Accept(ev) {
		metrics.IncRejection(string(current))
		logger.Debug(ctx, component, "answer.reject",
			slog.Int64("user_id", int64(user)),
			slog.String("state", string(current)),
			slog.String("field", string(step.Field)),
			slog.String("expects", step.Expects.String()),
		)
		return []form.Effect{e.machine.Rejection(current)}, nil
	}

	next, err := e.store.RecordField(ctx, user, step.Field, step.Extract(ev))
	if err != nil {
		return nil, fmt.Errorf("engine: record %s: %w", step.Field, err)
	}
	if next != current {
		return e.machine.Prompt(next), nil
	}

	profile, err := e.store.Finalize(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("engine: finalize: %w", err)
	}
	metrics.IncCompleted()
	logger.Info(ctx, component, "profile.saved",
		slog.Int64("user_id", int64(user)),
		slog.Bool("wish_news", profile.WishNews),
	)
	return e.machine.Completion(), nil
}
