package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

func completedEvent() usecase.DocuSealEvent {
	var ev usecase.DocuSealEvent
	ev.EventType = usecase.EventSubmissionCompleted
	ev.Data.ID = "4242"
	ev.Data.Submitters = []usecase.DocuSealSubmitter{{Email: "Claire@Example.com", Phone: "06 00 00 00 00"}}
	ev.Data.Documents = []usecase.DocuSealDocument{{Name: "devis", URL: "https://docuseal.example/signed.pdf"}}
	return ev
}

type signatureFixture struct {
	devis    *MockDevisRepository
	leads    *MockLeadRepository
	fetcher  *MockFetcher
	renderer *MockRenderer
	storage  *MockStorage
	notifier *MockNotifier
	rec      *fakeRecorder
	uc       *usecase.ProcessSignatureUseCase
}

func newSignatureFixture() *signatureFixture {
	f := &signatureFixture{
		devis:    new(MockDevisRepository),
		leads:    new(MockLeadRepository),
		fetcher:  new(MockFetcher),
		renderer: new(MockRenderer),
		storage:  new(MockStorage),
		notifier: new(MockNotifier),
		rec:      &fakeRecorder{},
	}
	f.uc = usecase.NewProcessSignatureUseCase(f.devis, f.leads, f.fetcher, f.renderer, f.storage, f.notifier, f.rec)
	return f
}

func TestProcessSignatureIgnoresOtherEvents(t *testing.T) {
	f := newSignatureFixture()
	ev := completedEvent()
	ev.EventType = "form.viewed"

	out, err := f.uc.Execute(context.Background(), ev)

	require.NoError(t, err)
	assert.True(t, out.Ignored)
	f.devis.AssertNotCalled(t, "FindLatestForSigner", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessSignatureCompleted(t *testing.T) {
	f := newSignatureFixture()
	d := &entity.Devis{ID: "d-1", LeadID: devisLeadID, Numero: "DEV-20250101-ABCDEF", Statut: entity.DevisStatusEnvoye}
	signed := []byte("%PDF-1.7 signed")

	f.devis.On("FindLatestForSigner", mock.Anything, "claire@example.com", "+33600000000").Return(d, nil)
	f.fetcher.On("DownloadDocument", mock.Anything, "https://docuseal.example/signed.pdf").Return(signed, nil)
	f.renderer.On("Validate", signed).Return(nil)
	f.storage.On("Upload", mock.Anything, usecase.BucketDevisSignes, "DEV-20250101-ABCDEF_signe.pdf", signed, "application/pdf").
		Return("https://storage.example/devis_signes/DEV-20250101-ABCDEF_signe.pdf", nil)
	f.devis.On("MarkSigned", mock.Anything, "d-1", "https://storage.example/devis_signes/DEV-20250101-ABCDEF_signe.pdf", "4242", mock.Anything).Return(nil)
	f.leads.On("UpdateStatus", mock.Anything, devisLeadID, entity.LeadStatusSigne).Return(nil)
	f.notifier.On("SendSignatureConfirmation", mock.Anything, d).Return(nil)

	out, err := f.uc.Execute(context.Background(), completedEvent())

	require.NoError(t, err)
	assert.Equal(t, "d-1", out.DevisID)
	assert.Equal(t, entity.DevisStatusSigne, d.Statut)
	assert.NotNil(t, d.DateSignature)
	assert.Empty(t, f.rec.records)
	f.devis.AssertExpectations(t)
	f.leads.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestProcessSignatureDevisNotFound(t *testing.T) {
	f := newSignatureFixture()
	f.devis.On("FindLatestForSigner", mock.Anything, mock.Anything, mock.Anything).Return(nil, entity.ErrNotFound)

	_, err := f.uc.Execute(context.Background(), completedEvent())

	var de *usecase.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, usecase.CodeNotFound, de.Code)
	f.fetcher.AssertNotCalled(t, "DownloadDocument", mock.Anything, mock.Anything)
}

func TestProcessSignatureMissingSubmitter(t *testing.T) {
	f := newSignatureFixture()
	ev := completedEvent()
	ev.Data.Submitters = nil

	_, err := f.uc.Execute(context.Background(), ev)

	var de *usecase.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, usecase.CodeValidation, de.Code)
}

func TestProcessSignatureDownloadFailureRecorded(t *testing.T) {
	f := newSignatureFixture()
	f.devis.On("FindLatestForSigner", mock.Anything, mock.Anything, mock.Anything).
		Return(&entity.Devis{ID: "d-1", Numero: "DEV-X"}, nil)
	f.fetcher.On("DownloadDocument", mock.Anything, mock.Anything).Return(nil, errors.New("404 from docuseal"))

	_, err := f.uc.Execute(context.Background(), completedEvent())

	assert.True(t, usecase.IsTechnicalError(err))
	require.Len(t, f.rec.records, 1)
	assert.Equal(t, usecase.WorkflowDocuSeal, f.rec.records[0].Workflow)
	assert.Equal(t, "download_signed_pdf", f.rec.records[0].Node)
	f.devis.AssertNotCalled(t, "MarkSigned", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
