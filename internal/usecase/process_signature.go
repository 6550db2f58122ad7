package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/log"
)

const (
	WorkflowDocuSeal = "docuseal"

	EventSubmissionCompleted = "submission.completed"
)

type ProcessSignatureUseCase struct {
	DevisRepo entity.DevisRepositoryInterface
	LeadRepo  entity.LeadRepositoryInterface
	Fetcher   DocumentFetcher
	Renderer  PDFRenderer
	Storage   FileStorage
	Notifier  Notifier
	Recorder  ErrorRecorder
	logger    *slog.Logger
}

func NewProcessSignatureUseCase(
	devisRepo entity.DevisRepositoryInterface,
	leadRepo entity.LeadRepositoryInterface,
	fetcher DocumentFetcher,
	renderer PDFRenderer,
	storage FileStorage,
	notifier Notifier,
	recorder ErrorRecorder,
) *ProcessSignatureUseCase {
	return &ProcessSignatureUseCase{
		DevisRepo: devisRepo,
		LeadRepo:  leadRepo,
		Fetcher:   fetcher,
		Renderer:  renderer,
		Storage:   storage,
		Notifier:  notifier,
		Recorder:  recorder,
		logger:    log.WithComponent("process_signature"),
	}
}

// Execute handles a DocuSeal webhook. Events other than submission.completed are
// acknowledged and ignored.
func (uc *ProcessSignatureUseCase) Execute(ctx context.Context, event DocuSealEvent) (*ProcessSignatureOutput, error) {
	if event.EventType != EventSubmissionCompleted {
		uc.logger.Info("docuseal event ignored", slog.String("event_type", event.EventType))
		return &ProcessSignatureOutput{Ignored: true}, nil
	}

	var email, phone, pdfURL string
	if len(event.Data.Submitters) > 0 {
		email = entity.NormalizeEmail(event.Data.Submitters[0].Email)
		phone = entity.NormalizePhone(event.Data.Submitters[0].Phone)
	}
	if len(event.Data.Documents) > 0 {
		pdfURL = strings.TrimSpace(event.Data.Documents[0].URL)
	}

	var errs []ValidationError
	if email == "" {
		errs = append(errs, ValidationError{"data.submitters[0].email", "is required"})
	}
	if pdfURL == "" {
		errs = append(errs, ValidationError{"data.documents[0].url", "is required"})
	}
	if len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	var (
		devis     *entity.Devis
		pdf       []byte
		signedURL string
		signedAt  = time.Now()
	)

	p := NewPipeline(WorkflowDocuSeal, uc.Recorder)
	p.AddCriticalStep("find_devis", func(ctx context.Context) error {
		var err error
		devis, err = uc.DevisRepo.FindLatestForSigner(ctx, email, phone)
		if errors.Is(err, entity.ErrNotFound) {
			return NewNotFoundError(fmt.Sprintf("Aucun devis trouvé pour %s", email))
		}
		if err != nil {
			return NewDatabaseError("find devis", err)
		}
		return nil
	})
	p.AddCriticalStep("download_signed_pdf", func(ctx context.Context) error {
		var err error
		if pdf, err = uc.Fetcher.DownloadDocument(ctx, pdfURL); err != nil {
			return NewUpstreamError("docuseal", err)
		}
		if err := uc.Renderer.Validate(pdf); err != nil {
			return NewUpstreamError("docuseal", fmt.Errorf("signed document is not a valid pdf: %w", err))
		}
		return nil
	})
	p.AddCriticalStep("upload_signed_pdf", func(ctx context.Context) error {
		var err error
		signedURL, err = uc.Storage.Upload(ctx, BucketDevisSignes, devis.Numero+"_signe.pdf", pdf, "application/pdf")
		if err != nil {
			return NewUpstreamError("storage", err)
		}
		return nil
	})
	p.AddCriticalStep("mark_signed", func(ctx context.Context) error {
		if err := uc.DevisRepo.MarkSigned(ctx, devis.ID, signedURL, string(event.Data.ID), signedAt); err != nil {
			return NewDatabaseError("mark devis signed", err)
		}
		devis.URLPDF = signedURL
		devis.Statut = entity.DevisStatusSigne
		devis.DateSignature = &signedAt
		devis.DocuSealSubmissionID = string(event.Data.ID)
		return nil
	})
	p.AddStep("update_lead_status", func(ctx context.Context) error {
		if devis.LeadID == "" {
			return nil
		}
		if err := uc.LeadRepo.UpdateStatus(ctx, devis.LeadID, entity.LeadStatusSigne); err != nil {
			return NewDatabaseError("update lead status", err)
		}
		return nil
	})
	p.AddStep("signature_confirmation", func(ctx context.Context) error {
		if err := uc.Notifier.SendSignatureConfirmation(ctx, devis); err != nil {
			return NewUpstreamError("email", err)
		}
		return nil
	})

	if _, err := p.Execute(ctx); err != nil {
		return nil, err
	}

	uc.logger.Info("signature processed",
		slog.String("devis_id", devis.ID),
		slog.String("numero", devis.Numero),
	)

	return &ProcessSignatureOutput{
		DevisID:   devis.ID,
		Numero:    devis.Numero,
		SignedURL: signedURL,
	}, nil
}
