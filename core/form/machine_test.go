package form

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextForwardEdges(t *testing.T) {
	want := []State{
		StateAwaitingAge,
		StateAwaitingGender,
		StateAwaitingPhoto,
		StateAwaitingEducation,
		StateAwaitingNewsOptIn,
		StateCompleted,
	}
	for i, st := range AwaitingStates {
		next, ok := Next(st, string(Fields[i]))
		require.True(t, ok, "edge %s from %s", Fields[i], st)
		assert.Equal(t, want[i], next)
	}
}

func TestNextRejectsOutOfOrderField(t *testing.T) {
	next, ok := Next(StateAwaitingName, string(FieldAge))
	assert.False(t, ok)
	assert.Equal(t, StateAwaitingName, next)

	_, ok = Next(StateIdle, string(FieldName))
	assert.False(t, ok)
}

func TestNextCancelFromEveryNonIdleState(t *testing.T) {
	for _, st := range append(append([]State(nil), AwaitingStates...), StateCompleted) {
		next, ok := Next(st, EdgeCancel)
		require.True(t, ok, "cancel from %s", st)
		assert.Equal(t, StateIdle, next)
	}
	_, ok := Next(StateIdle, EdgeCancel)
	assert.False(t, ok)
}

func TestNextRestartOnlyFromCompleted(t *testing.T) {
	next, ok := Next(StateCompleted, EdgeRestart)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingName, next)

	_, ok = Next(StateAwaitingAge, EdgeRestart)
	assert.False(t, ok)
}

func TestNewFSMFollowsTable(t *testing.T) {
	ctx := context.Background()
	m := NewFSM(StateAwaitingName)
	for _, f := range Fields {
		require.True(t, m.Can(string(f)), "can %s at %s", f, m.Current())
		require.NoError(t, m.Event(ctx, string(f)))
	}
	assert.Equal(t, string(StateCompleted), m.Current())
	assert.False(t, m.Can(string(FieldName)))
	require.NoError(t, m.Event(ctx, EdgeRestart))
	assert.Equal(t, string(StateAwaitingName), m.Current())
}

func TestStepPredicates(t *testing.T) {
	m := NewMachine(Texts{})
	cases := []struct {
		name  string
		state State
		event Event
		ok    bool
		value any
	}{
		{"name alpha", StateAwaitingName, Text("Anna"), true, "Anna"},
		{"name cyrillic", StateAwaitingName, Text("Анна"), true, "Анна"},
		{"name with space", StateAwaitingName, Text("Anna Maria"), false, nil},
		{"name digits", StateAwaitingName, Text("Anna1"), false, nil},
		{"name empty", StateAwaitingName, Text(""), false, nil},
		{"name as photo", StateAwaitingName, Photo("f", "u"), false, nil},
		{"age ok", StateAwaitingAge, Text("15"), true, 15},
		{"age lower bound", StateAwaitingAge, Text("4"), true, 4},
		{"age upper bound", StateAwaitingAge, Text("120"), true, 120},
		{"age leading zero", StateAwaitingAge, Text("015"), true, 15},
		{"age too low", StateAwaitingAge, Text("3"), false, nil},
		{"age too high", StateAwaitingAge, Text("200"), false, nil},
		{"age signed", StateAwaitingAge, Text("+15"), false, nil},
		{"age arabic-indic digits", StateAwaitingAge, Text("٣٠"), false, nil},
		{"age fullwidth digits", StateAwaitingAge, Text("３０"), false, nil},
		{"age overflow", StateAwaitingAge, Text("99999999999999999999999"), false, nil},
		{"age as button", StateAwaitingAge, Button("15"), false, nil},
		{"gender female", StateAwaitingGender, Button(TokenFemale), true, GenderFemale},
		{"gender undefined", StateAwaitingGender, Button(TokenUndefinedGender), true, GenderUndefined},
		{"gender typed", StateAwaitingGender, Text("female"), false, nil},
		{"gender foreign token", StateAwaitingGender, Button(TokenHigher), false, nil},
		{"photo ok", StateAwaitingPhoto, Photo("file", "uniq"), true, PhotoRef{ID: "file", UniqueID: "uniq"}},
		{"photo missing id", StateAwaitingPhoto, Photo("", "uniq"), false, nil},
		{"photo as text", StateAwaitingPhoto, Text("photo"), false, nil},
		{"photo as sticker", StateAwaitingPhoto, Other(), false, nil},
		{"education higher", StateAwaitingEducation, Button(TokenHigher), true, EducationHigher},
		{"education none", StateAwaitingEducation, Button(TokenNoEducation), true, EducationNone},
		{"education foreign token", StateAwaitingEducation, Button(TokenMale), false, nil},
		{"news yes", StateAwaitingNewsOptIn, Button(TokenYesNews), true, true},
		{"news no", StateAwaitingNewsOptIn, Button(TokenNoNews), true, false},
		{"news typed", StateAwaitingNewsOptIn, Text(TokenYesNews), false, nil},
		{"command in sequence", StateAwaitingName, Command("/start"), false, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step, ok := m.Step(tc.state)
			require.True(t, ok)
			assert.Equal(t, tc.ok, step.Accept(tc.event))
			if tc.ok {
				assert.Equal(t, tc.value, step.Extract(tc.event))
			}
		})
	}
}

func TestStepMissingForNonAwaitingStates(t *testing.T) {
	m := NewMachine(Texts{})
	for _, st := range []State{StateIdle, StateCompleted} {
		_, ok := m.Step(st)
		assert.False(t, ok, st)
	}
}

func TestPromptShapes(t *testing.T) {
	m := NewMachine(Texts{})

	gender := m.Prompt(StateAwaitingGender)
	require.Len(t, gender, 1)
	assert.Equal(t, EffectSendTextWithChoices, gender[0].Kind)
	assert.Equal(t, []string{TokenMale, TokenFemale, TokenUndefinedGender}, gender[0].Tokens())
	assert.Len(t, gender[0].Choices, 2)

	photo := m.Prompt(StateAwaitingPhoto)
	require.Len(t, photo, 2)
	assert.Equal(t, EffectDeletePreviousMessage, photo[0].Kind)
	assert.Equal(t, EffectSendText, photo[1].Kind)

	news := m.Prompt(StateAwaitingNewsOptIn)
	require.Len(t, news, 1)
	assert.Equal(t, EffectEditPreviousMessage, news[0].Kind)
	assert.Equal(t, []string{TokenYesNews, TokenNoNews}, news[0].Tokens())

	assert.Nil(t, m.Prompt(StateIdle))
}

func TestRejectionsAreDistinctAndMentionCancel(t *testing.T) {
	m := NewMachine(Texts{})
	seen := map[string]State{}
	for _, st := range AwaitingStates {
		eff := m.Rejection(st)
		assert.Equal(t, EffectSendText, eff.Kind)
		assert.Contains(t, eff.Text, "/cancel")
		if prev, dup := seen[eff.Text]; dup {
			t.Fatalf("rejection for %s duplicates %s", st, prev)
		}
		seen[eff.Text] = st
	}
}

func TestTextsMergeKeepsOverrides(t *testing.T) {
	m := NewMachine(Texts{AskName: "Name?"})
	assert.Equal(t, "Name?", m.Texts().AskName)
	assert.Equal(t, DefaultTexts().AskAge, m.Texts().AskAge)
}
