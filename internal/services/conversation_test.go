package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktravel-server/internal/apperrors"
	"worktravel-server/internal/models"
)

func TestNewThreadKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, NewThreadKey(3, 7), NewThreadKey(7, 3))
	k := NewThreadKey(9, 2)
	assert.Equal(t, uint(2), k.Low)
	assert.Equal(t, uint(9), k.High)
	assert.Equal(t, uint(9), k.Other(2))
	assert.Equal(t, uint(2), k.Other(9))
}

func TestListThreadsGroupsBothDirections(t *testing.T) {
	f := newFixture(t)
	svc := NewConversationService(f.db)
	ctx := context.Background()

	m1 := f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "Is this job still available?", 1)
	m2 := f.message(t, f.offer.ID, f.owner.ID, f.applicant.ID, "Yes it is", 2)
	m3 := f.message(t, f.offer.ID, f.other.ID, f.owner.ID, "I am interested", 3)
	m4 := f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "Great, when can I start?", 4)

	threads, err := svc.ListThreads(ctx, f.owner.ID, f.offer.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Equal(t, NewThreadKey(f.owner.ID, f.applicant.ID), threads[0].Key)
	assert.Equal(t, f.applicant.ID, threads[0].Counterparty.ID)
	assert.Equal(t, "user2", threads[0].Counterparty.Username)
	assert.Equal(t, []uint{m4.ID, m2.ID, m1.ID}, messageIDs(threads[0].Messages))
	assert.Equal(t, m4.ID, threads[0].LastMessage.ID)

	assert.Equal(t, f.other.ID, threads[1].Counterparty.ID)
	assert.Equal(t, []uint{m3.ID}, messageIDs(threads[1].Messages))

	for _, th := range threads {
		partners := map[uint]struct{}{}
		for _, m := range th.Messages {
			partners[m.SenderID] = struct{}{}
			partners[m.ReceiverID] = struct{}{}
		}
		delete(partners, f.owner.ID)
		assert.Len(t, partners, 1)
	}
}

func TestListThreadsApplicantSeesOnlyOwnThread(t *testing.T) {
	f := newFixture(t)
	svc := NewConversationService(f.db)

	f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "hello", 1)
	f.message(t, f.offer.ID, f.other.ID, f.owner.ID, "hi there", 2)

	threads, err := svc.ListThreads(context.Background(), f.applicant.ID, f.offer.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, f.owner.ID, threads[0].Counterparty.ID)
}

func TestListThreadsUnknownOffer(t *testing.T) {
	f := newFixture(t)
	svc := NewConversationService(f.db)

	_, err := svc.ListThreads(context.Background(), f.owner.ID, 999)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestGetThreadOrdering(t *testing.T) {
	f := newFixture(t)
	svc := NewConversationService(f.db)
	ctx := context.Background()

	// inserted out of order on purpose
	m3 := f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "third", 30)
	m1 := f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "first", 10)
	m2 := f.message(t, f.offer.ID, f.owner.ID, f.applicant.ID, "second", 20)
	f.message(t, f.offer.ID, f.other.ID, f.owner.ID, "unrelated", 15)

	thread, err := svc.GetThread(ctx, f.owner.ID, f.offer.ID, f.applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{m1.ID, m2.ID, m3.ID}, messageIDs(thread.Messages))
	assert.True(t, thread.CanGrade)
	assert.Equal(t, "user2", thread.Counterparty.Username)

	threads, err := svc.ListThreads(ctx, f.owner.ID, f.offer.ID)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, []uint{m3.ID, m2.ID, m1.ID}, messageIDs(threads[0].Messages))

	applicantView, err := svc.GetThread(ctx, f.applicant.ID, f.offer.ID, f.owner.ID)
	require.NoError(t, err)
	assert.False(t, applicantView.CanGrade)
	assert.Len(t, applicantView.Messages, 3)
}

func TestGetThreadNotFound(t *testing.T) {
	f := newFixture(t)
	svc := NewConversationService(f.db)
	ctx := context.Background()

	_, err := svc.GetThread(ctx, f.owner.ID, 999, f.applicant.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = svc.GetThread(ctx, f.owner.ID, f.offer.ID, 999)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestPostMessageRouting(t *testing.T) {
	f := newFixture(t)
	svc := NewConversationService(f.db)
	ctx := context.Background()

	// a non-owner always writes to the owner, whatever target was given
	msg, err := svc.PostMessage(ctx, f.applicant.ID, f.offer.ID, f.other.ID, PostMessageInput{Text: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, msg.ReceiverID)
	assert.Equal(t, f.applicant.ID, msg.SenderID)

	reply, err := svc.PostMessage(ctx, f.owner.ID, f.offer.ID, f.applicant.ID, PostMessageInput{Text: "  Welcome  "})
	require.NoError(t, err)
	assert.Equal(t, f.applicant.ID, reply.ReceiverID)
	assert.Equal(t, "Welcome", reply.Text)

	var count int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestPostMessageValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewConversationService(f.db)
	ctx := context.Background()

	tests := []struct {
		name         string
		sender       uint
		offer        uint
		counterparty uint
		text         string
		want         apperrors.Code
	}{
		{"empty text", f.applicant.ID, f.offer.ID, f.owner.ID, "", apperrors.CodeInvalidArgument},
		{"blank text", f.applicant.ID, f.offer.ID, f.owner.ID, "   ", apperrors.CodeInvalidArgument},
		{"unknown offer", f.applicant.ID, 999, f.owner.ID, "hi", apperrors.CodeNotFound},
		{"owner to unknown user", f.owner.ID, f.offer.ID, 999, "hi", apperrors.CodeNotFound},
		{"owner to self", f.owner.ID, f.offer.ID, f.owner.ID, "hi", apperrors.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PostMessage(ctx, tt.sender, tt.offer, tt.counterparty, PostMessageInput{Text: tt.text})
			assert.Equal(t, tt.want, apperrors.CodeOf(err))
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListInbox(t *testing.T) {
	f := newFixture(t)
	svc := NewConversationService(f.db)
	second := createOffer(t, f.db, f.applicant.ID, "Digital Marketer", "Canada", true)

	a1 := f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "about developer", 5)
	b1 := f.message(t, second.ID, f.owner.ID, f.applicant.ID, "about marketer", 1)
	a2 := f.message(t, f.offer.ID, f.owner.ID, f.applicant.ID, "reply", 7)
	f.message(t, second.ID, f.other.ID, f.applicant.ID, "not for owner", 2)

	inbox, err := svc.ListInbox(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	assert.Equal(t, second.ID, inbox[0].Offer.ID)
	assert.Equal(t, []uint{b1.ID}, messageIDs(inbox[0].Messages))
	assert.Equal(t, f.offer.ID, inbox[1].Offer.ID)
	assert.Equal(t, "Software Developer", inbox[1].Offer.Name)
	assert.Equal(t, []uint{a1.ID, a2.ID}, messageIDs(inbox[1].Messages))

	for _, conv := range inbox {
		for _, m := range conv.Messages {
			assert.True(t, m.SenderID == f.owner.ID || m.ReceiverID == f.owner.ID)
		}
	}

	empty, err := svc.ListInbox(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
