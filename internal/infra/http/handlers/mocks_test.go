package handlers_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindRecentByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*entity.Lead, error) {
	args := m.Called(ctx, fingerprint, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateQualification(ctx context.Context, id string, q entity.Qualification, hot bool) error {
	args := m.Called(ctx, id, q, hot)
	return args.Error(0)
}

func (m *MockLeadRepository) RecordOpen(ctx context.Context, id string, hotOpenThreshold int) (*entity.Lead, error) {
	args := m.Called(ctx, id, hotOpenThreshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) RecordClick(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStatus(ctx context.Context, id, statut string) error {
	args := m.Called(ctx, id, statut)
	return args.Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, id string, patch entity.LeadPatch) (*entity.Lead, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListHot(ctx context.Context, threshold int) ([]*entity.Lead, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*entity.Lead, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

// MockDevisRepository
type MockDevisRepository struct {
	mock.Mock
}

func (m *MockDevisRepository) Create(ctx context.Context, d *entity.Devis) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDevisRepository) FindByID(ctx context.Context, id string) (*entity.Devis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Devis), args.Error(1)
}

func (m *MockDevisRepository) ListByLead(ctx context.Context, leadID string) ([]*entity.Devis, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Devis), args.Error(1)
}

func (m *MockDevisRepository) FindLatestForSigner(ctx context.Context, email, phone string) (*entity.Devis, error) {
	args := m.Called(ctx, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Devis), args.Error(1)
}

func (m *MockDevisRepository) MarkSigned(ctx context.Context, id, signedURL, submissionID string, signedAt time.Time) error {
	args := m.Called(ctx, id, signedURL, submissionID, signedAt)
	return args.Error(0)
}

func (m *MockDevisRepository) Update(ctx context.Context, id string, patch entity.DevisPatch) (*entity.Devis, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Devis), args.Error(1)
}

func (m *MockDevisRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDevisRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*entity.Devis, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Devis), args.Error(1)
}

// MockReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, r *entity.MonthlyReport) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReportRepository) FindByID(ctx context.Context, id string) (*entity.MonthlyReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MonthlyReport), args.Error(1)
}

func (m *MockReportRepository) List(ctx context.Context, limit int) ([]*entity.MonthlyReport, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.MonthlyReport), args.Error(1)
}

func (m *MockReportRepository) ExistsForPeriod(ctx context.Context, mois, annee int) (bool, error) {
	args := m.Called(ctx, mois, annee)
	return args.Bool(0), args.Error(1)
}

func (m *MockReportRepository) MarkSent(ctx context.Context, id, destinataire string) error {
	args := m.Called(ctx, id, destinataire)
	return args.Error(0)
}

// MockErrorLogRepository
type MockErrorLogRepository struct {
	mock.Mock
}

func (m *MockErrorLogRepository) Insert(ctx context.Context, e *entity.ErrorLog) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockErrorLogRepository) ListRecent(ctx context.Context, limit int) ([]*entity.ErrorLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.ErrorLog), args.Error(1)
}

// MockQualifier
type MockQualifier struct {
	mock.Mock
}

func (m *MockQualifier) Qualify(ctx context.Context, lead *entity.Lead) (entity.Qualification, error) {
	args := m.Called(ctx, lead)
	return args.Get(0).(entity.Qualification), args.Error(1)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendLeadConfirmation(ctx context.Context, lead *entity.Lead, links usecase.TrackingLinks) error {
	args := m.Called(ctx, lead, links)
	return args.Error(0)
}

func (m *MockNotifier) SendTeamAlert(ctx context.Context, lead *entity.Lead, hot bool) error {
	args := m.Called(ctx, lead, hot)
	return args.Error(0)
}

func (m *MockNotifier) SendDevis(ctx context.Context, devis *entity.Devis, pdf []byte) error {
	args := m.Called(ctx, devis, pdf)
	return args.Error(0)
}

func (m *MockNotifier) SendSignatureConfirmation(ctx context.Context, devis *entity.Devis) error {
	args := m.Called(ctx, devis)
	return args.Error(0)
}

func (m *MockNotifier) SendMonthlyReport(ctx context.Context, report *entity.MonthlyReport, to string, pdf []byte) error {
	args := m.Called(ctx, report, to, pdf)
	return args.Error(0)
}

// MockRenderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) RenderDevis(devis *entity.Devis) ([]byte, error) {
	args := m.Called(devis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRenderer) RenderReport(report *entity.MonthlyReport) ([]byte, error) {
	args := m.Called(report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRenderer) Validate(pdf []byte) error {
	args := m.Called(pdf)
	return args.Error(0)
}

// MockStorage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, bucket, path string, content []byte, contentType string) (string, error) {
	args := m.Called(ctx, bucket, path, content, contentType)
	return args.String(0), args.Error(1)
}

// MockFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) DownloadDocument(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// recordedError is one call to fakeRecorder.Record.
type recordedError struct {
	Workflow string
	Node     string
	Err      error
}

// fakeRecorder keeps every recorded error in memory.
type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedError
}

func (r *fakeRecorder) Record(ctx context.Context, workflow, node string, err error, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedError{Workflow: workflow, Node: node, Err: err})
}

func (r *fakeRecorder) Nodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	nodes := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		nodes = append(nodes, rec.Node)
	}
	return nodes
}
