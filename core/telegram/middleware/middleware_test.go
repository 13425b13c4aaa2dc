package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/formbot/core/config"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"
)

func newContext(t *testing.T, upd tele.Update) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(upd)
}

func textUpdate(id int, user int64) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Sender: &tele.User{ID: user},
		Chat:   &tele.Chat{ID: user, Type: tele.ChatPrivate},
		Text:   "hi",
	}}
}

func callbackUpdate(id int, user int64) tele.Update {
	return tele.Update{ID: id, Callback: &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: user},
		Message: &tele.Message{Chat: &tele.Chat{ID: user}},
		Data:    "\fchoice|yes_news",
	}}
}

func counting(n *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*n++
		return nil
	}
}

func TestRateLimitDropsBurstPerUser(t *testing.T) {
	now := time.Unix(1000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Now:       func() time.Time { return now },
		OnLimited: counting(&limited),
	})
	handled := 0
	h := mw(counting(&handled))

	require.NoError(t, h(newContext(t, textUpdate(1, 1))))
	require.NoError(t, h(newContext(t, textUpdate(2, 1))))
	require.NoError(t, h(newContext(t, textUpdate(3, 2))))
	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, limited)

	now = now.Add(time.Second)
	require.NoError(t, h(newContext(t, textUpdate(4, 1))))
	assert.Equal(t, 3, handled)
}

func TestRateLimitExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{config.UpdateCallback: {}},
	})
	handled := 0
	h := mw(counting(&handled))

	for i := 0; i < 3; i++ {
		require.NoError(t, h(newContext(t, callbackUpdate(i, 1))))
	}
	assert.Equal(t, 3, handled)
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, config.UpdateMessage, UpdateKind(textUpdate(1, 1)))
	assert.Equal(t, config.UpdateCallback, UpdateKind(callbackUpdate(1, 1)))
	assert.Equal(t, "other", UpdateKind(tele.Update{}))
}

func TestRecoverSwallowsPanic(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	assert.NotPanics(t, func() {
		assert.NoError(t, h(newContext(t, textUpdate(1, 1))))
	})
}

func TestAdminOnly(t *testing.T) {
	rejected := 0
	handled := 0
	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 7, OnReject: counting(&rejected)})
	h := mw(counting(&handled))

	require.NoError(t, h(newContext(t, textUpdate(1, 7))))
	require.NoError(t, h(newContext(t, textUpdate(2, 8))))
	assert.Equal(t, 1, handled)
	assert.Equal(t, 1, rejected)

	closed := AdminOnlyMiddleware(AdminOptions{})(counting(&handled))
	require.NoError(t, closed(newContext(t, textUpdate(3, 7))))
	assert.Equal(t, 1, handled)
}

func TestLoggerMiddlewareStoresContext(t *testing.T) {
	c := newContext(t, textUpdate(35, 36))
	var seen bool
	h := LoggerMiddleware(func(c tele.Context) error {
		ctx, ok := tghelpers.ContextFrom(c)
		require.True(t, ok)
		assert.NotEmpty(t, c.Get("rid"))
		_, seen = c.Get(StartKey).(time.Time)
		assert.NotNil(t, ctx)
		return nil
	})
	require.NoError(t, h(c))
	assert.True(t, seen)
}
