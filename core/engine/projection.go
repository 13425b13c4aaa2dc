package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/state"
)

// Render returns the user's stored profile as a captioned photo, or the
// "not filled yet" guidance when none exists. It never changes state.
func (e *Engine) Render(ctx context.Context, user form.UserID) (form.Effect, error) {
	unlock := e.store.Lock(user)
	defer unlock()
	return e.render(ctx, user)
}

func (e *Engine) render(ctx context.Context, user form.UserID) (form.Effect, error) {
	p, err := e.store.Profile(ctx, user)
	if errors.Is(err, state.ErrProfileNotFound) {
		return form.SendText(e.machine.Texts().NoProfile), nil
	}
	if err != nil {
		return form.Effect{}, fmt.Errorf("engine: load profile: %w", err)
	}
	return form.SendPhotoWithCaption(p.Photo, Caption(e.machine.Texts(), p)), nil
}

// Caption formats the profile fields one per line.
func Caption(t form.Texts, p form.Profile) string {
	var b strings.Builder
	line := func(label, value string) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
	}
	line(t.CaptionName, p.Name)
	line(t.CaptionAge, strconv.Itoa(p.Age))
	line(t.CaptionGender, string(p.Gender))
	line(t.CaptionEducation, string(p.Education))
	line(t.CaptionWishNews, strconv.FormatBool(p.WishNews))
	return b.String()
}
