package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/logger"
	"github.com/m3rciful/formbot/core/telegram/keyboard"
	"github.com/m3rciful/formbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const actionRespond = "answer_callback"

// queueWait bounds how long an update waits for room in its user's shard.
const queueWait = 30 * time.Second

// Executor performs engine effects against the Bot API. Effects of one
// event become a single sender job keyed by user, so replies keep their
// order within and across events.
type Executor struct {
	sender *sender.Dispatcher
}

// NewExecutor returns an executor; a nil dispatcher runs effects inline.
func NewExecutor(d *sender.Dispatcher) *Executor {
	return &Executor{sender: d}
}

// Execute schedules effects in the context of update c. Callback queries
// are always answered first so the client stops its spinner.
func (x *Executor) Execute(ctx context.Context, c tele.Context, effects []form.Effect) error {
	steps := Steps(c, effects)
	if len(steps) == 0 {
		return nil
	}
	if x == nil || x.sender == nil {
		var errs []error
		for _, s := range steps {
			errs = append(errs, s.Run())
		}
		return errors.Join(errs...)
	}

	var key int64
	if u := c.Sender(); u != nil {
		key = u.ID
	}
	err := x.sender.Enqueue(ctx, key, steps...)
	if errors.Is(err, sender.ErrQueueFull) {
		// Running inline would overtake replies already queued for this user.
		logger.Warn(ctx, "tg.sender", "queue.full", slog.Int("effects", len(effects)))
		waitCtx, cancel := context.WithTimeout(ctx, queueWait)
		err = x.sender.EnqueueWait(waitCtx, key, steps...)
		cancel()
	}
	if errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.Int("effects", len(effects)),
			slog.String("err", err.Error()),
		)
		return x.sender.RunSync(ctx, steps...)
	}
	return err
}

// Steps translates effects into Bot API calls bound to c.
func Steps(c tele.Context, effects []form.Effect) []sender.Step {
	steps := make([]sender.Step, 0, len(effects)+1)
	hasCallback := c.Callback() != nil
	if hasCallback {
		steps = append(steps, sender.Step{
			Action:   actionRespond,
			Endpoint: "answerCallbackQuery",
			Run:      func() error { return c.Respond() },
		})
	}

	for _, eff := range effects {
		eff := eff
		action := eff.Kind.String()
		switch eff.Kind {
		case form.EffectSendText:
			steps = append(steps, sender.Step{Action: action, Endpoint: "sendMessage", Run: func() error {
				return c.Send(eff.Text)
			}})
		case form.EffectSendTextWithChoices:
			steps = append(steps, sender.Step{Action: action, Endpoint: "sendMessage", Run: func() error {
				return sendWithMarkup(c, eff.Text, keyboard.Choices(eff.Choices))
			}})
		case form.EffectSendPhotoWithCaption:
			steps = append(steps, sender.Step{Action: action, Endpoint: "sendPhoto", Run: func() error {
				return c.Send(&tele.Photo{File: tele.File{FileID: eff.Photo.ID}, Caption: eff.Text})
			}})
		case form.EffectEditPreviousMessage:
			markup := keyboard.Choices(eff.Choices)
			if !hasCallback {
				// Nothing to edit; the text still has to reach the user.
				steps = append(steps, sender.Step{Action: action, Endpoint: "sendMessage", Run: func() error {
					return sendWithMarkup(c, eff.Text, markup)
				}})
				continue
			}
			steps = append(steps, sender.Step{Action: action, Endpoint: "editMessageText", Run: func() error {
				if markup != nil {
					return c.Edit(eff.Text, markup)
				}
				return c.Edit(eff.Text)
			}})
		case form.EffectDeletePreviousMessage:
			if !hasCallback {
				continue
			}
			steps = append(steps, sender.Step{Action: action, Endpoint: "deleteMessage", Run: func() error {
				return c.Delete()
			}})
		}
	}
	return steps
}

func sendWithMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return c.Send(text)
	}
	return c.Send(text, markup)
}
