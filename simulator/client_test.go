package simulator

import (
	"testing"
	"time"

	"hirehub/internal/chat"
	"hirehub/internal/engine/actors"
	"hirehub/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeMessageIdempotent(t *testing.T) {
	client := NewChatClient("", "", uuid.New(), "")
	other := uuid.New()
	conversationID := chat.ConversationID(client.UserID, other)

	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       client.UserID,
		ReceiverID:     other,
		Body:           "once",
		SentAt:         time.Now(),
	}

	// Echo and authoritative broadcast carry the same record id.
	client.mergeMessage(message)
	client.mergeMessage(message)

	assert.Len(t, client.Messages(conversationID), 1)
}

func TestMessagesSortedOldestFirst(t *testing.T) {
	client := NewChatClient("", "", uuid.New(), "")
	other := uuid.New()
	conversationID := chat.ConversationID(client.UserID, other)

	base := time.Now()
	for i := 3; i > 0; i-- {
		client.mergeMessage(&models.Message{
			ID:             uuid.New(),
			ConversationID: conversationID,
			SenderID:       other,
			ReceiverID:     client.UserID,
			SentAt:         base.Add(time.Duration(i) * time.Second),
		})
	}

	messages := client.Messages(conversationID)
	require.Len(t, messages, 3)
	for i := 1; i < len(messages); i++ {
		assert.True(t, messages[i].SentAt.After(messages[i-1].SentAt))
	}
}

func TestApplyReadReceiptFlipsOwnOutgoingOnly(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	client := NewChatClient("", "", me, "")
	conversationID := chat.ConversationID(me, other)

	outgoing := &models.Message{
		ID: uuid.New(), ConversationID: conversationID,
		SenderID: me, ReceiverID: other, SentAt: time.Now(),
	}
	incoming := &models.Message{
		ID: uuid.New(), ConversationID: conversationID,
		SenderID: other, ReceiverID: me, SentAt: time.Now(),
	}
	client.mergeMessage(outgoing)
	client.mergeMessage(incoming)

	client.applyReadReceipt(&actors.ReadReceipt{
		ConversationID: conversationID,
		ReaderID:       other,
	})

	for _, message := range client.Messages(conversationID) {
		if message.ID == outgoing.ID {
			assert.True(t, message.IsRead, "counterpart's receipt acknowledges my outgoing message")
		} else {
			assert.False(t, message.IsRead, "my own incoming read state is server-driven")
		}
	}
}

// TestScenarioConvergence runs the whole two-user exchange against an
// in-process stack: live delivery, receipts, a reconnect, and the final
// store/client state agreement.
func TestScenarioConvergence(t *testing.T) {
	harness := NewHarness()
	defer harness.Close()

	require.NoError(t, RunScenario(harness))
}
