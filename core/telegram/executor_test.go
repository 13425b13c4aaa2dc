package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/telegram/sender"
)

// botAPI records the method and text of every Bot API call.
type botAPI struct {
	mu    sync.Mutex
	calls []string
}

func (a *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := map[string]any{}
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &params)

	a.mu.Lock()
	call := path.Base(r.URL.Path)
	if text, ok := params["text"].(string); ok {
		call += " " + text
	}
	a.calls = append(a.calls, call)
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":100,"date":0,"chat":{"id":5,"type":"private"}}}`)
}

func (a *botAPI) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func apiBot(t *testing.T) (*tele.Bot, *botAPI) {
	t.Helper()
	api := &botAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	bot, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "1:test", Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot, api
}

func TestExecuteWaitsBehindQueuedRepliesOfFullShard(t *testing.T) {
	bot, api := apiBot(t)
	c := bot.NewContext(message("hi"))
	d := sender.NewDispatcher(sender.Options{QueueSize: 1, Shards: 1, RetryBackoff: time.Millisecond})
	x := NewExecutor(d)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, d.Enqueue(ctx, 5, sender.Step{Action: "busy", Run: func() error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	require.NoError(t, x.Execute(ctx, c, []form.Effect{form.SendText("first event reply")}))

	done := make(chan error, 1)
	go func() {
		done <- x.Execute(ctx, c, []form.Effect{form.SendText("second event reply")})
	}()
	select {
	case err := <-done:
		t.Fatalf("second reply did not wait for the full shard: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	d.Close()

	assert.Equal(t, []string{
		"sendMessage first event reply",
		"sendMessage second event reply",
	}, api.recorded())
}

func TestExecuteRunsInlineAfterClose(t *testing.T) {
	bot, api := apiBot(t)
	c := bot.NewContext(message("hi"))
	d := sender.NewDispatcher(sender.Options{RetryBackoff: time.Millisecond})
	d.Close()

	require.NoError(t, NewExecutor(d).Execute(context.Background(), c, []form.Effect{form.SendText("late reply")}))
	assert.Equal(t, []string{"sendMessage late reply"}, api.recorded())
}
