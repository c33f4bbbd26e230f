package services

import (
	"context"
	"testing"
	"time"

	"github.com/NIU1603490/eraswap-sub000/internal/apperr"

	"github.com/stretchr/testify/require"
)

func TestFindOrCreateConversationIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	product := seedProduct(t, db, marc.ID, "Bike")

	first, err := svc.FindOrCreate(context.Background(), anna.ID, marc.ID, product.ID)
	require.NoError(t, err)

	second, err := svc.FindOrCreate(context.Background(), anna.ID, marc.ID, product.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// The pair is unordered: swapping callers finds the same thread.
	swapped, err := svc.FindOrCreate(context.Background(), marc.ID, anna.ID, product.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, swapped.ID)
}

func TestFindOrCreateConversationScopesByProduct(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	bike := seedProduct(t, db, marc.ID, "Bike")
	lamp := seedProduct(t, db, marc.ID, "Lamp")

	bikeConv, err := svc.FindOrCreate(context.Background(), anna.ID, marc.ID, bike.ID)
	require.NoError(t, err)

	lampConv, err := svc.FindOrCreate(context.Background(), anna.ID, marc.ID, lamp.ID)
	require.NoError(t, err)
	require.NotEqual(t, bikeConv.ID, lampConv.ID)

	// "No product" only matches other no-product conversations.
	plain, err := svc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)
	require.NotEqual(t, bikeConv.ID, plain.ID)
	require.NotEqual(t, lampConv.ID, plain.ID)

	plainAgain, err := svc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, plain.ID, plainAgain.ID)
}

func TestNoProductConversationUnderForeignKeys(t *testing.T) {
	db := newStrictTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	msgSvc := NewMessageService(db, nil, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")

	// ProductID 0 is a sentinel, not a products row; creating the thread and
	// a message in it must not trip a foreign key check.
	conv, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)

	again, err := convSvc.FindOrCreate(context.Background(), marc.ID, anna.ID, 0)
	require.NoError(t, err)
	require.Equal(t, conv.ID, again.ID)

	_, err = msgSvc.Send(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       anna.ID,
		ReceiverID:     marc.ID,
		Content:        "Hi! Is the listing still up?",
	})
	require.NoError(t, err)
}

func TestFindOrCreateConversationValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")

	_, err := svc.FindOrCreate(context.Background(), 0, marc.ID, 0)
	require.True(t, apperr.IsValidation(err))

	_, err = svc.FindOrCreate(context.Background(), anna.ID, anna.ID, 0)
	require.True(t, apperr.IsValidation(err))

	_, err = svc.FindOrCreate(context.Background(), anna.ID, 9999, 0)
	require.True(t, apperr.IsNotFound(err))

	_, err = svc.FindOrCreate(context.Background(), anna.ID, marc.ID, 9999)
	require.True(t, apperr.IsNotFound(err))
}

func TestFindOrCreateConversationPopulates(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	product := seedProduct(t, db, marc.ID, "Bike")

	conv, err := svc.FindOrCreate(context.Background(), anna.ID, marc.ID, product.ID)
	require.NoError(t, err)
	require.True(t, conv.HasParticipant(anna.ID))
	require.True(t, conv.HasParticipant(marc.ID))
	require.NotNil(t, conv.Product)
	require.Equal(t, "Bike", conv.Product.Title)
	require.NotEmpty(t, conv.UserLow.Username)
	require.NotEmpty(t, conv.UserHigh.Username)
}

func TestListConversationsForUser(t *testing.T) {
	db := newTestDB(t)
	convSvc := NewConversationService(db, nopLogger())
	msgSvc := NewMessageService(db, nil, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	laia := seedUser(t, db, "laia")
	product := seedProduct(t, db, marc.ID, "Bike")

	withMarc, err := convSvc.FindOrCreate(context.Background(), anna.ID, marc.ID, product.ID)
	require.NoError(t, err)
	withLaia, err := convSvc.FindOrCreate(context.Background(), anna.ID, laia.ID, 0)
	require.NoError(t, err)

	// A message bumps the Marc thread to the top.
	time.Sleep(5 * time.Millisecond)
	_, err = msgSvc.Send(context.Background(), SendMessageInput{
		ConversationID: withMarc.ID,
		SenderID:       anna.ID,
		ReceiverID:     marc.ID,
		Content:        "Is this available?",
		ProductID:      product.ID,
	})
	require.NoError(t, err)

	convs, err := convSvc.ListForUser(context.Background(), anna.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	require.Equal(t, withMarc.ID, convs[0].ID)
	require.NotNil(t, convs[0].LastMessage)
	require.Equal(t, "Is this available?", convs[0].LastMessage.Content)
	require.Equal(t, "anna", convs[0].LastMessage.Sender.Username)

	// Someone outside both threads sees nothing.
	empty, err := convSvc.ListForUser(context.Background(), 9999)
	require.NoError(t, err)
	require.Empty(t, empty)

	_ = withLaia
}

func TestGetForParticipant(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nopLogger())

	anna := seedUser(t, db, "anna")
	marc := seedUser(t, db, "marc")
	laia := seedUser(t, db, "laia")

	conv, err := svc.FindOrCreate(context.Background(), anna.ID, marc.ID, 0)
	require.NoError(t, err)

	_, err = svc.GetForParticipant(context.Background(), conv.ID, anna.ID)
	require.NoError(t, err)

	_, err = svc.GetForParticipant(context.Background(), conv.ID, laia.ID)
	require.True(t, apperr.IsForbidden(err))

	_, err = svc.GetForParticipant(context.Background(), 9999, anna.ID)
	require.True(t, apperr.IsNotFound(err))
}
