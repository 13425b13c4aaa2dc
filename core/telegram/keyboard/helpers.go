package keyboard

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/formbot/core/form"
)

// ChoiceUnique is the callback unique shared by every questionnaire button;
// the payload carries the choice token.
const ChoiceUnique = "choice"

// InlineBtn describes a convenience wrapper for inline button properties.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

// Choices renders choice rows as an inline keyboard. It returns nil for no
// rows so an edit drops the previous keyboard.
func Choices(rows [][]form.Choice) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	btns := make([][]InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]InlineBtn, 0, len(row))
		for _, c := range row {
			r = append(r, InlineBtn{Text: c.Label, Unique: ChoiceUnique, Data: c.Token})
		}
		btns = append(btns, r)
	}
	return InlineButtonsRows(btns...)
}
