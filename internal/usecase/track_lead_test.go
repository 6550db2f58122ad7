package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/signing"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

const trackedLeadID = "3f2b8c1e-9d4a-4e7b-a1c2-5d6e7f8a9b0c"

func newTrackFixture() (*MockLeadRepository, *MockNotifier, *fakeRecorder, *signing.Signer, *usecase.TrackLeadUseCase) {
	repo := new(MockLeadRepository)
	notifier := new(MockNotifier)
	rec := &fakeRecorder{}
	signer := signing.NewSigner(testTrackingSecret, "https://api.toitureai.fr")
	return repo, notifier, rec, signer, usecase.NewTrackLeadUseCase(repo, signer, notifier, rec, 3)
}

func TestTrackOpenIncrements(t *testing.T) {
	repo, notifier, _, signer, uc := newTrackFixture()
	repo.On("RecordOpen", mock.Anything, trackedLeadID, 3).Return(&entity.Lead{ID: trackedLeadID, EmailOuvertCount: 1}, nil).Once()

	out, err := uc.Execute(context.Background(), usecase.TrackLeadInput{
		LeadID: trackedLeadID, EventType: signing.EventOpen, Signature: signer.Sign(trackedLeadID, signing.EventOpen),
	})

	require.NoError(t, err)
	assert.False(t, out.BecameHot)
	repo.AssertExpectations(t)
	notifier.AssertNotCalled(t, "SendTeamAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackOpenReachingThresholdAlerts(t *testing.T) {
	repo, notifier, _, signer, uc := newTrackFixture()
	lead := &entity.Lead{ID: trackedLeadID, EmailOuvertCount: 3, LeadChaud: true, Statut: entity.LeadStatusChaud}
	repo.On("RecordOpen", mock.Anything, trackedLeadID, 3).Return(lead, nil)
	notifier.On("SendTeamAlert", mock.Anything, lead, true).Return(nil).Once()

	out, err := uc.Execute(context.Background(), usecase.TrackLeadInput{
		LeadID: trackedLeadID, EventType: signing.EventOpen, Signature: signer.Sign(trackedLeadID, signing.EventOpen),
	})

	require.NoError(t, err)
	assert.True(t, out.BecameHot)
	notifier.AssertExpectations(t)
}

func TestTrackClickMarksHot(t *testing.T) {
	repo, _, _, signer, uc := newTrackFixture()
	repo.On("RecordClick", mock.Anything, trackedLeadID).
		Return(&entity.Lead{ID: trackedLeadID, EmailClicCount: 1, Score: 100, LeadChaud: true}, nil)

	out, err := uc.Execute(context.Background(), usecase.TrackLeadInput{
		LeadID: trackedLeadID, EventType: signing.EventClick, Signature: signer.Sign(trackedLeadID, signing.EventClick),
	})

	require.NoError(t, err)
	assert.True(t, out.BecameHot)
	assert.Equal(t, 100, out.Lead.Score)
}

func TestTrackRejectsTamperedSignatureWithoutMutation(t *testing.T) {
	repo, _, rec, signer, uc := newTrackFixture()

	// a valid open signature must not authorize a click
	sig := signer.Sign(trackedLeadID, signing.EventOpen)
	_, err := uc.Execute(context.Background(), usecase.TrackLeadInput{
		LeadID: trackedLeadID, EventType: signing.EventClick, Signature: sig,
	})

	var se *usecase.SignatureError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, signing.EventClick, se.EventType)
	repo.AssertNotCalled(t, "RecordClick", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "RecordOpen", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, rec.records)
}

func TestTrackValidatesInput(t *testing.T) {
	_, _, _, _, uc := newTrackFixture()

	tests := []struct {
		name  string
		input usecase.TrackLeadInput
		field string
	}{
		{"unknown type", usecase.TrackLeadInput{LeadID: trackedLeadID, EventType: "view", Signature: "x"}, "type"},
		{"bad uuid", usecase.TrackLeadInput{LeadID: "not-a-uuid", EventType: "open", Signature: "x"}, "lead_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.input)
			var de *usecase.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.field, de.Fields[0].Field)
		})
	}
}

func TestTrackUnknownLeadIsNotFound(t *testing.T) {
	repo, _, rec, signer, uc := newTrackFixture()
	repo.On("RecordClick", mock.Anything, trackedLeadID).Return(nil, entity.ErrNotFound)

	_, err := uc.Execute(context.Background(), usecase.TrackLeadInput{
		LeadID: trackedLeadID, EventType: signing.EventClick, Signature: signer.Sign(trackedLeadID, signing.EventClick),
	})

	var de *usecase.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, usecase.CodeNotFound, de.Code)
	assert.Equal(t, []string{"record_click"}, rec.Nodes())
}

func TestTrackDatabaseErrorRecorded(t *testing.T) {
	repo, _, rec, signer, uc := newTrackFixture()
	repo.On("RecordOpen", mock.Anything, trackedLeadID, 3).Return(nil, errors.New("deadlock detected"))

	_, err := uc.Execute(context.Background(), usecase.TrackLeadInput{
		LeadID: trackedLeadID, EventType: signing.EventOpen, Signature: signer.Sign(trackedLeadID, signing.EventOpen),
	})

	assert.True(t, usecase.IsTechnicalError(err))
	assert.Equal(t, []string{"record_open"}, rec.Nodes())
}

func TestTrackConcurrentOpensEachIncrement(t *testing.T) {
	repo, _, _, signer, uc := newTrackFixture()
	const n = 20
	repo.On("RecordOpen", mock.Anything, trackedLeadID, 3).Return(&entity.Lead{ID: trackedLeadID, EmailOuvertCount: 1}, nil)

	in := usecase.TrackLeadInput{LeadID: trackedLeadID, EventType: signing.EventOpen, Signature: signer.Sign(trackedLeadID, signing.EventOpen)}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = uc.Execute(context.Background(), in)
		}()
	}
	wg.Wait()

	repo.AssertNumberOfCalls(t, "RecordOpen", n)
}
