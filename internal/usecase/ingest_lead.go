package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/log"
)

const (
	WorkflowLeadGeneration = "lead_generation"

	msgLeadAccepted  = "Votre demande a été enregistrée. Nous vous contacterons sous 24-48h."
	msgLeadDuplicate = "Votre demande a déjà été enregistrée. Nous vous contacterons sous 24-48h."
	msgCaptchaFailed = "Vérification de sécurité échouée. Veuillez rafraîchir la page."
)

type IngestLeadUseCase struct {
	Repo             entity.LeadRepositoryInterface
	Qualifier        Qualifier
	Notifier         Notifier
	Signer           TrackingSigner
	Captcha          CaptchaVerifier
	Recorder         ErrorRecorder
	HotLeadThreshold int
	DuplicateWindow  time.Duration
	logger           *slog.Logger
}

// NewIngestLeadUseCase wires the ingestion pipeline. captcha may be nil to disable the check.
func NewIngestLeadUseCase(
	repo entity.LeadRepositoryInterface,
	qualifier Qualifier,
	notifier Notifier,
	signer TrackingSigner,
	captcha CaptchaVerifier,
	recorder ErrorRecorder,
	hotLeadThreshold int,
	duplicateWindow time.Duration,
) *IngestLeadUseCase {
	return &IngestLeadUseCase{
		Repo:             repo,
		Qualifier:        qualifier,
		Notifier:         notifier,
		Signer:           signer,
		Captcha:          captcha,
		Recorder:         recorder,
		HotLeadThreshold: hotLeadThreshold,
		DuplicateWindow:  duplicateWindow,
		logger:           log.WithComponent("ingest_lead"),
	}
}

func (uc *IngestLeadUseCase) Execute(ctx context.Context, input LeadWebhookInput) (*IngestLeadOutput, error) {
	if errs := ValidateLeadWebhookInput(input); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	if uc.Captcha != nil {
		ok, err := uc.Captcha.Verify(ctx, input.TurnstileToken, input.IPAddress)
		if err != nil {
			uc.logger.Warn("turnstile verification error", slog.String("error", err.Error()))
		}
		if !ok {
			return nil, &DomainError{Code: CodeCaptcha, Message: msgCaptchaFailed}
		}
	}

	lead := entity.NewLead(buildLead(input))
	lead.Fingerprint = lead.ComputeFingerprint()

	if existing := uc.findDuplicate(ctx, lead.Fingerprint); existing != nil {
		uc.logger.Info("duplicate lead submission", slog.String("lead_id", existing.ID))
		return &IngestLeadOutput{
			Status:    "duplicate",
			Message:   msgLeadDuplicate,
			Lead:      LeadSummary{ID: existing.ID, Email: existing.Email, Score: strconv.Itoa(existing.Score)},
			Duplicate: true,
		}, nil
	}

	var links TrackingLinks

	p := NewPipeline(WorkflowLeadGeneration, uc.Recorder)
	p.AddCriticalStep("persist_lead", func(ctx context.Context) error {
		if err := uc.Repo.Create(ctx, lead); err != nil {
			return NewDatabaseError("insert lead", err)
		}
		return nil
	})
	p.AddStep("qualify_lead", func(ctx context.Context) error {
		return uc.qualify(ctx, lead)
	})
	p.AddStep("tracking_links", func(ctx context.Context) error {
		links.Click, links.Open = uc.Signer.TrackingURLs(lead.ID)
		return nil
	})
	p.AddStep("confirmation_email", func(ctx context.Context) error {
		if links.Open == "" {
			return errors.New("tracking links unavailable")
		}
		if err := uc.Notifier.SendLeadConfirmation(ctx, lead, links); err != nil {
			return NewUpstreamError("email", err)
		}
		return nil
	})
	p.AddStep("team_alert", func(ctx context.Context) error {
		if err := uc.Notifier.SendTeamAlert(ctx, lead, lead.Score >= uc.HotLeadThreshold); err != nil {
			return NewUpstreamError("email", err)
		}
		return nil
	})

	res, err := p.Execute(ctx)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("lead ingested",
		slog.String("lead_id", lead.ID),
		slog.Int("score", lead.Score),
		slog.Any("failed_steps", res.Failed),
	)

	return &IngestLeadOutput{
		Status:      "success",
		Message:     msgLeadAccepted,
		Lead:        LeadSummary{ID: lead.ID, Email: lead.Email, Score: strconv.Itoa(lead.Score)},
		FailedSteps: res.Failed,
	}, nil
}

func (uc *IngestLeadUseCase) findDuplicate(ctx context.Context, fingerprint string) *entity.Lead {
	if uc.DuplicateWindow <= 0 {
		return nil
	}
	existing, err := uc.Repo.FindRecentByFingerprint(ctx, fingerprint, time.Now().Add(-uc.DuplicateWindow))
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			uc.logger.Warn("duplicate lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	return existing
}

// qualify stores the AI verdict, or the offline estimate when the AI call fails.
func (uc *IngestLeadUseCase) qualify(ctx context.Context, lead *entity.Lead) error {
	q, err := uc.Qualifier.Qualify(ctx, lead)
	if err != nil {
		uc.Recorder.Record(ctx, WorkflowLeadGeneration, "ai_qualification", NewUpstreamError("openai", err),
			map[string]any{"lead_id": lead.ID})
		q = FallbackQualification(lead, "IA indisponible")
	}
	q = q.Clamp()
	hot := q.Score >= uc.HotLeadThreshold

	if err := uc.Repo.UpdateQualification(ctx, lead.ID, q, hot); err != nil {
		return NewDatabaseError("update qualification", err)
	}

	lead.Score = q.Score
	lead.Urgence = q.Urgence
	lead.AINotes = q.Recommandation
	lead.AISegments = q.Segments
	lead.AIRaw = q.Raw
	lead.LeadChaud = hot
	lead.Statut = entity.LeadStatusQualifie
	return nil
}

func buildLead(input LeadWebhookInput) entity.Lead {
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = "landing-page-astro"
	}
	return entity.Lead{
		Nom:          strings.TrimSpace(input.Nom),
		Prenom:       strings.TrimSpace(input.Prenom),
		Email:        entity.NormalizeEmail(input.Email),
		Telephone:    entity.NormalizePhone(input.Telephone),
		TypeProjet:   entity.NormalizeProjectType(input.TypeDeProjet),
		Adresse:      strings.TrimSpace(input.Adresse),
		Ville:        strings.TrimSpace(input.Ville),
		CodePostal:   strings.TrimSpace(input.CodePostal),
		Surface:      entity.ParseQuantity(string(input.Surface)),
		BudgetEstime: entity.ParseQuantity(string(input.Budget)),
		Delai:        entity.NormalizeDelai(input.Delai),
		Description:  PlainText(input.Description),
		Source:       truncate(source, 50),
		UserAgent:    truncate(input.UserAgent, 500),
		IPAddress:    truncate(input.IPAddress, 50),
	}
}

func leadNotFound(id string) error {
	return NewNotFoundError(fmt.Sprintf("Lead %s non trouvé", id))
}
