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

func TestPipelineRunsEveryStepInOrder(t *testing.T) {
	var order []string
	p := usecase.NewPipeline("wf", &fakeRecorder{})
	for _, name := range []string{"a", "b", "c"} {
		name := name
		p.AddStep(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	res, err := p.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, res.Completed)
	assert.Empty(t, res.Failed)
}

func TestPipelineNonCriticalFailureContinues(t *testing.T) {
	rec := &fakeRecorder{}
	ran := false
	p := usecase.NewPipeline("wf", rec)
	p.AddStep("email", func(ctx context.Context) error { return errors.New("smtp down") })
	p.AddStep("after", func(ctx context.Context) error { ran = true; return nil })

	res, err := p.Execute(context.Background())

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"email"}, res.Failed)
	assert.Equal(t, []string{"email"}, rec.Nodes())
}

func TestPipelineCriticalFailureStops(t *testing.T) {
	rec := &fakeRecorder{}
	ran := false
	dbErr := usecase.NewDatabaseError("insert", errors.New("conn refused"))
	p := usecase.NewPipeline("wf", rec)
	p.AddCriticalStep("persist", func(ctx context.Context) error { return dbErr })
	p.AddStep("after", func(ctx context.Context) error { ran = true; return nil })

	_, err := p.Execute(context.Background())

	require.Error(t, err)
	assert.False(t, ran)
	assert.ErrorIs(t, err, dbErr)
	assert.True(t, usecase.IsTechnicalError(err))
	assert.Len(t, rec.records, 1)
	assert.Equal(t, "wf", rec.records[0].Workflow)
}

func TestPipelineRecoversPanic(t *testing.T) {
	rec := &fakeRecorder{}
	p := usecase.NewPipeline("wf", rec)
	p.AddCriticalStep("boom", func(ctx context.Context) error { panic("nil map") })

	_, err := p.Execute(context.Background())

	require.Error(t, err)
	var pe *usecase.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "nil map", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, []string{"boom"}, rec.Nodes())
}

func TestPipelineDoesNotRecordDomainErrors(t *testing.T) {
	rec := &fakeRecorder{}
	p := usecase.NewPipeline("wf", rec)
	p.AddCriticalStep("load", func(ctx context.Context) error {
		return usecase.NewNotFoundError("missing")
	})

	_, err := p.Execute(context.Background())

	require.Error(t, err)
	assert.True(t, usecase.IsDomainError(err))
	assert.Empty(t, rec.records)
}

func TestErrorReporterPersistsWithExecutionID(t *testing.T) {
	repo := new(MockErrorLogRepository)
	var counted []string
	reporter := usecase.NewErrorReporter(repo, func(workflow, node string) {
		counted = append(counted, workflow+"/"+node)
	})

	repo.On("Insert", mock.Anything, mock.MatchedBy(func(e *entity.ErrorLog) bool {
		return e.Workflow == "lead_generation" &&
			e.Node == "persist_lead" &&
			e.ExecutionID == "req-42" &&
			e.Details["code"] == usecase.CodeDatabase &&
			e.Details["lead_id"] == "abc"
	})).Return(nil).Once()

	ctx := usecase.WithExecutionID(context.Background(), "req-42")
	reporter.Record(ctx, "lead_generation", "persist_lead",
		usecase.NewDatabaseError("insert lead", errors.New("timeout")),
		map[string]any{"lead_id": "abc"})

	repo.AssertExpectations(t)
	assert.Equal(t, []string{"lead_generation/persist_lead"}, counted)
}

func TestErrorReporterReportsUpstreamService(t *testing.T) {
	repo := new(MockErrorLogRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	var services []string
	reporter := usecase.NewErrorReporter(repo, nil)
	reporter.OnUpstream = func(service string) { services = append(services, service) }

	reporter.Record(context.Background(), "devis", "upload_pdf", usecase.NewUpstreamError("storage", errors.New("503")), nil)
	reporter.Record(context.Background(), "devis", "insert_devis", usecase.NewDatabaseError("insert", errors.New("down")), nil)

	assert.Equal(t, []string{"storage"}, services)
}

func TestErrorReporterSurvivesCancelledContextAndInsertFailure(t *testing.T) {
	repo := new(MockErrorLogRepository)
	repo.On("Insert", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(errors.New("error_logs unavailable")).Once()

	reporter := usecase.NewErrorReporter(repo, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		reporter.Record(ctx, "tracking", "record_open", errors.New("boom"), nil)
	})
	repo.AssertExpectations(t)
}

func TestErrorReporterIgnoresNilError(t *testing.T) {
	repo := new(MockErrorLogRepository)
	usecase.NewErrorReporter(repo, nil).Record(context.Background(), "wf", "node", nil, nil)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}
