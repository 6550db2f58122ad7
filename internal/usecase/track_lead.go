package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/signing"
)

const WorkflowTracking = "tracking"

type TrackLeadUseCase struct {
	Repo             entity.LeadRepositoryInterface
	Signer           TrackingSigner
	Notifier         Notifier
	Recorder         ErrorRecorder
	HotOpenThreshold int
}

func NewTrackLeadUseCase(
	repo entity.LeadRepositoryInterface,
	signer TrackingSigner,
	notifier Notifier,
	recorder ErrorRecorder,
	hotOpenThreshold int,
) *TrackLeadUseCase {
	return &TrackLeadUseCase{
		Repo:             repo,
		Signer:           signer,
		Notifier:         notifier,
		Recorder:         recorder,
		HotOpenThreshold: hotOpenThreshold,
	}
}

// Execute verifies the link before touching the database. A *SignatureError means
// nothing was mutated.
func (uc *TrackLeadUseCase) Execute(ctx context.Context, input TrackLeadInput) (*TrackLeadOutput, error) {
	if !signing.IsEventType(input.EventType) {
		return nil, NewValidationError([]ValidationError{{"type", "must be open or click"}})
	}
	if _, err := uuid.Parse(input.LeadID); err != nil {
		return nil, NewValidationError([]ValidationError{{"lead_id", "must be a valid UUID"}})
	}
	if !uc.Signer.Verify(input.LeadID, input.EventType, input.Signature) {
		return nil, &SignatureError{EventType: input.EventType}
	}

	if input.EventType == signing.EventOpen {
		return uc.recordOpen(ctx, input.LeadID)
	}
	return uc.recordClick(ctx, input.LeadID)
}

func (uc *TrackLeadUseCase) recordOpen(ctx context.Context, leadID string) (*TrackLeadOutput, error) {
	lead, err := uc.Repo.RecordOpen(ctx, leadID, uc.HotOpenThreshold)
	if err != nil {
		return nil, uc.fail(ctx, "record_open", leadID, err)
	}

	out := &TrackLeadOutput{Lead: lead, BecameHot: lead.EmailOuvertCount == uc.HotOpenThreshold}
	if out.BecameHot {
		if err := uc.Notifier.SendTeamAlert(ctx, lead, true); err != nil {
			uc.Recorder.Record(ctx, WorkflowTracking, "hot_alert", NewUpstreamError("email", err),
				map[string]any{"lead_id": leadID})
		}
	}
	return out, nil
}

func (uc *TrackLeadUseCase) recordClick(ctx context.Context, leadID string) (*TrackLeadOutput, error) {
	lead, err := uc.Repo.RecordClick(ctx, leadID)
	if err != nil {
		return nil, uc.fail(ctx, "record_click", leadID, err)
	}
	return &TrackLeadOutput{Lead: lead, BecameHot: lead.EmailClicCount == 1}, nil
}

func (uc *TrackLeadUseCase) fail(ctx context.Context, node, leadID string, err error) error {
	if errors.Is(err, entity.ErrNotFound) {
		err = leadNotFound(leadID)
	} else {
		err = NewDatabaseError(node, err)
	}
	uc.Recorder.Record(ctx, WorkflowTracking, node, err, map[string]any{"lead_id": leadID})
	return err
}
