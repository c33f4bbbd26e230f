package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/NIU1603490/eraswap-sub000/internal/apperr"
	"github.com/NIU1603490/eraswap-sub000/models"

	"github.com/stretchr/testify/require"
)

func TestSendMessageValidationBoundary(t *testing.T) {
	db := newTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	svc := NewMessageService(db, nil, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	conv, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)

	cases := []struct {
		name string
		in   SendMessageInput
	}{
		{"missing conversation", SendMessageInput{SenderID: anna.ID, ReceiverID: marc.ID, Content: "hi"}},
		{"missing sender", SendMessageInput{ConversationID: conv.ID, ReceiverID: marc.ID, Content: "hi"}},
		{"missing receiver", SendMessageInput{ConversationID: conv.ID, SenderID: anna.ID, Content: "hi"}},
		{"empty content", SendMessageInput{ConversationID: conv.ID, SenderID: anna.ID, ReceiverID: marc.ID, Content: "   "}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Send(context.Background(), tc.in)
			require.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	// Nothing persisted.
	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSendMessageUnknownReferences(t *testing.T) {
	db := newTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	svc := NewMessageService(db, nil, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	conv, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), SendMessageInput{
		ConversationID: 9999, SenderID: anna.ID, ReceiverID: marc.ID, Content: "hi",
	})
	require.True(t, apperr.IsNotFound(err))

	_, err = svc.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID, SenderID: anna.ID, ReceiverID: marc.ID, Content: "hi", ProductID: 9999,
	})
	require.True(t, apperr.IsNotFound(err))
}

func TestSendMessageRequiresParticipants(t *testing.T) {
	db := newTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	svc := NewMessageService(db, nil, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	laia := seedUser(t, db, "laia")
	conv, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID, SenderID: laia.ID, ReceiverID: marc.ID, Content: "hi",
	})
	require.True(t, apperr.IsValidation(err))
}

func TestSendMessageUpdatesConversationPointer(t *testing.T) {
	db := newTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	svc := NewMessageService(db, nil, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	product := seedProduct(t, db, marc.ID, "Bike")
	conv, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, product.ID)
	require.NoError(t, err)
	before := conv.UpdatedAt

	time.Sleep(5 * time.Millisecond)

	msg, err := svc.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       anna.ID,
		ReceiverID:     marc.ID,
		Content:        "Is this available?",
		ProductID:      product.ID,
	})
	require.NoError(t, err)
	require.NotZero(t, msg.ID)
	require.False(t, msg.IsRead)

	var updated models.Conversation
	require.NoError(t, db.First(&updated, conv.ID).Error)
	require.NotNil(t, updated.LastMessageID)
	require.Equal(t, msg.ID, *updated.LastMessageID)
	require.True(t, updated.UpdatedAt.After(before))
}

func TestListMessagesNewestFirst(t *testing.T) {
	db := newTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	svc := NewMessageService(db, nil, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	conv, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := svc.Send(context.Background(), SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       anna.ID,
			ReceiverID:     marc.ID,
			Content:        fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	msgs, err := svc.ListByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		require.False(t, msgs[i-1].CreatedAt.Before(msgs[i].CreatedAt),
			"messages must be in non-increasing creation order")
	}
	require.Equal(t, "message 4", msgs[0].Content)
	require.Equal(t, "anna", msgs[0].Sender.Username)
	require.Equal(t, "marc", msgs[0].Receiver.Username)

	_, err = svc.ListByConversation(context.Background(), 0)
	require.True(t, apperr.IsValidation(err))
}

func TestSendMessageBroadcastsToRoom(t *testing.T) {
	db := newTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	broadcaster := &fakeBroadcaster{}
	svc := NewMessageService(db, broadcaster, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	product := seedProduct(t, db, marc.ID, "Bike")
	conv, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, product.ID)
	require.NoError(t, err)

	msg, err := svc.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       anna.ID,
		ReceiverID:     marc.ID,
		Content:        "Is this available?",
		ProductID:      product.ID,
	})
	require.NoError(t, err)

	require.Len(t, broadcaster.rooms, 1)
	require.Equal(t, conv.ID, broadcaster.rooms[0])

	var payload struct {
		Type           string         `json:"type"`
		ConversationID uint           `json:"conversation_id"`
		Message        models.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(broadcaster.payloads[0], &payload))
	require.Equal(t, "new_message", payload.Type)
	require.Equal(t, conv.ID, payload.ConversationID)
	require.Equal(t, msg.ID, payload.Message.ID)
	// The broadcast copy is populated; the returned record is not.
	require.Equal(t, "anna", payload.Message.Sender.Username)
	require.Equal(t, "Bike", payload.Message.Product.Title)
	require.Empty(t, msg.Sender.Username)
}

func TestSendMessageSurvivesWithoutBroadcaster(t *testing.T) {
	db := newTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	svc := NewMessageService(db, nil, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	conv, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)

	msg, err := svc.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID, SenderID: anna.ID, ReceiverID: marc.ID, Content: "hi",
	})
	require.NoError(t, err)
	require.NotZero(t, msg.ID)
}
