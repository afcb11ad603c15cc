package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(role, content string) Message {
	return Message{Role: role, Content: content}
}

func TestReconstructEmpty(t *testing.T) {
	takes := Reconstruct(nil)
	require.NotNil(t, takes)
	assert.Empty(t, takes)

	takes = Reconstruct([]Message{})
	assert.Empty(t, takes)
}

func TestReconstructPairsUserWithFollowingAssistant(t *testing.T) {
	takes := Reconstruct([]Message{
		msg(RoleUser, "hi"),
		msg(RoleAssistant, "hello"),
		msg(RoleUser, "bye"),
	})

	require.Len(t, takes, 2)

	assert.Equal(t, 0, takes[0].Index)
	assert.Equal(t, "hi", takes[0].Prompt)
	require.NotNil(t, takes[0].Response)
	assert.Equal(t, "hello", *takes[0].Response)

	assert.Equal(t, 1, takes[1].Index)
	assert.Equal(t, "bye", takes[1].Prompt)
	assert.Nil(t, takes[1].Response)
	assert.False(t, takes[1].Answered())
}

func TestReconstructFullyPairedLog(t *testing.T) {
	takes := Reconstruct([]Message{
		msg(RoleUser, "one"), msg(RoleAssistant, "1"),
		msg(RoleUser, "two"), msg(RoleAssistant, "2"),
		msg(RoleUser, "three"), msg(RoleAssistant, "3"),
	})

	require.Len(t, takes, 3)
	for i, take := range takes {
		assert.Equal(t, i, take.Index)
		assert.True(t, take.Answered(), "take %d should be answered", i)
	}
}

func TestReconstructDropsOrphanAssistant(t *testing.T) {
	takes := Reconstruct([]Message{
		msg(RoleAssistant, "unprompted"),
		msg(RoleUser, "hi"),
		msg(RoleAssistant, "hello"),
	})

	require.Len(t, takes, 1)
	assert.Equal(t, "hi", takes[0].Prompt)
	require.NotNil(t, takes[0].Response)
	assert.Equal(t, "hello", *takes[0].Response)
}

func TestReconstructIgnoresSystemMessages(t *testing.T) {
	takes := Reconstruct([]Message{
		msg(RoleSystem, "you are a songwriter"),
		msg(RoleUser, "verse about rain"),
		msg(RoleSystem, "keep it short"),
		msg(RoleAssistant, "rain falls"),
	})

	require.Len(t, takes, 1)
	assert.Equal(t, "verse about rain", takes[0].Prompt)
	require.NotNil(t, takes[0].Response)
	assert.Equal(t, "rain falls", *takes[0].Response)
}

func TestReconstructConsecutiveUserMessages(t *testing.T) {
	takes := Reconstruct([]Message{
		msg(RoleUser, "first"),
		msg(RoleUser, "second"),
		msg(RoleAssistant, "answer"),
	})

	require.Len(t, takes, 2)
	assert.Equal(t, "first", takes[0].Prompt)
	assert.Nil(t, takes[0].Response)
	assert.Equal(t, "second", takes[1].Prompt)
	require.NotNil(t, takes[1].Response)
	assert.Equal(t, "answer", *takes[1].Response)
}

func TestReconstructAssistantSettingsWin(t *testing.T) {
	userSettings := json.RawMessage(`{"temperature":0.4}`)
	assistantSettings := json.RawMessage(`{"temperature":1.5}`)

	takes := Reconstruct([]Message{
		{Role: RoleUser, Content: "hi", Settings: userSettings},
		{Role: RoleAssistant, Content: "hello", Settings: assistantSettings},
		{Role: RoleUser, Content: "again", Settings: userSettings},
		{Role: RoleAssistant, Content: "hello again"},
	})

	require.Len(t, takes, 2)
	assert.Equal(t, assistantSettings, takes[0].Settings)
	// No assistant settings on the second pair: the user's survive.
	assert.Equal(t, userSettings, takes[1].Settings)
}

func TestReconstructCarriesTimestamps(t *testing.T) {
	asked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	answered := asked.Add(3 * time.Second)

	takes := Reconstruct([]Message{
		{Role: RoleUser, Content: "hi", Timestamp: &asked},
		{Role: RoleAssistant, Content: "hello", Timestamp: &answered},
	})

	require.Len(t, takes, 1)
	require.NotNil(t, takes[0].PromptTimestamp)
	assert.Equal(t, asked, *takes[0].PromptTimestamp)
	require.NotNil(t, takes[0].ResponseTimestamp)
	assert.Equal(t, answered, *takes[0].ResponseTimestamp)
}

func TestReconstructIsDeterministicAndPure(t *testing.T) {
	input := []Message{
		msg(RoleUser, "a"),
		msg(RoleAssistant, "b"),
		msg(RoleUser, "c"),
	}
	snapshot := make([]Message, len(input))
	copy(snapshot, input)

	first := Reconstruct(input)
	second := Reconstruct(input)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, input, "input must not be mutated")
}
