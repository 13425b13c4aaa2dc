package router

import (
	tg "github.com/m3rciful/formbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// unsupported lists message kinds the questionnaire never accepts. They
// still reach the engine, which answers with a rejection or the fallback.
var unsupported = []string{
	tele.OnDocument,
	tele.OnSticker,
	tele.OnVideo,
	tele.OnVoice,
	tele.OnAudio,
	tele.OnAnimation,
	tele.OnVideoNote,
	tele.OnContact,
	tele.OnLocation,
}

// MessageRoutes routes plain text, photos and unsupported media to h.
// Registered commands are bound separately by CommandRoutes.
func MessageRoutes(h tele.HandlerFunc) []tg.Route {
	routes := []tg.Route{
		{Endpoint: tele.OnText, Handler: summarize("text", h)},
		{Endpoint: tele.OnPhoto, Handler: summarize("photo", h)},
	}
	other := summarize("other", h)
	for _, ep := range unsupported {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: other})
	}
	return routes
}
