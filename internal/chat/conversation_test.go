package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConversationIDOrderIndependent(t *testing.T) {
	for i := 0; i < 100; i++ {
		a := uuid.New()
		b := uuid.New()
		assert.Equal(t, ConversationID(a, b), ConversationID(b, a))
	}
}

func TestConversationIDStable(t *testing.T) {
	a := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	b := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	id := ConversationID(a, b)
	assert.Equal(t, a.String()+":"+b.String(), id)
	assert.Equal(t, id, ConversationID(a, b))
}

func TestConversationIDSelf(t *testing.T) {
	a := uuid.New()
	// Degenerate but valid; callers reject self-chat upstream.
	assert.Equal(t, a.String()+":"+a.String(), ConversationID(a, a))
}

func TestParticipantsRoundTrip(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	x, y, err := Participants(ConversationID(a, b))
	assert.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, []uuid.UUID{x, y})

	assert.True(t, IsParticipant(ConversationID(a, b), a))
	assert.True(t, IsParticipant(ConversationID(a, b), b))
	assert.False(t, IsParticipant(ConversationID(a, b), uuid.New()))
}

func TestParticipantsMalformed(t *testing.T) {
	_, _, err := Participants("not-a-conversation")
	assert.Error(t, err)

	_, _, err = Participants("abc:def")
	assert.Error(t, err)
}

func TestCounterpart(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	id := ConversationID(a, b)

	got, err := Counterpart(id, a)
	assert.NoError(t, err)
	assert.Equal(t, b, got)

	got, err = Counterpart(id, b)
	assert.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = Counterpart(id, uuid.New())
	assert.Error(t, err)
}
