package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Momo-444/toitureai-api/internal/config"
	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/log"
)

const (
	WorkflowDevis = "devis_generation"

	BucketDevis       = "devis"
	BucketDevisSignes = "devis_signes"

	defaultTVA           = 20.0
	defaultValiditeJours = 30
)

type GenerateDevisUseCase struct {
	LeadRepo  entity.LeadRepositoryInterface
	DevisRepo entity.DevisRepositoryInterface
	Lines     DevisLineGenerator
	Renderer  PDFRenderer
	Storage   FileStorage
	Notifier  Notifier
	Recorder  ErrorRecorder
	Pricing   config.Pricing
	logger    *slog.Logger
}

func NewGenerateDevisUseCase(
	leadRepo entity.LeadRepositoryInterface,
	devisRepo entity.DevisRepositoryInterface,
	lines DevisLineGenerator,
	renderer PDFRenderer,
	storage FileStorage,
	notifier Notifier,
	recorder ErrorRecorder,
	pricing config.Pricing,
) *GenerateDevisUseCase {
	return &GenerateDevisUseCase{
		LeadRepo:  leadRepo,
		DevisRepo: devisRepo,
		Lines:     lines,
		Renderer:  renderer,
		Storage:   storage,
		Notifier:  notifier,
		Recorder:  recorder,
		Pricing:   pricing,
		logger:    log.WithComponent("generate_devis"),
	}
}

func (uc *GenerateDevisUseCase) Execute(ctx context.Context, input GenerateDevisInput) (*GenerateDevisOutput, error) {
	if errs := ValidateGenerateDevisInput(input); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	tva, validite := defaultTVA, defaultValiditeJours
	if input.Params != nil {
		if input.Params.TVA != nil {
			tva = *input.Params.TVA
		}
		if input.Params.ValiditeJours != nil {
			validite = *input.Params.ValiditeJours
		}
	}

	var (
		lead      *entity.Lead
		devis     *entity.Devis
		pdf       []byte
		emailSent bool
	)

	p := NewPipeline(WorkflowDevis, uc.Recorder)
	p.AddCriticalStep("load_lead", func(ctx context.Context) error {
		var err error
		lead, err = uc.LeadRepo.FindByID(ctx, input.LeadID)
		if errors.Is(err, entity.ErrNotFound) {
			return leadNotFound(input.LeadID)
		}
		if err != nil {
			return NewDatabaseError("load lead", err)
		}
		return nil
	})
	p.AddCriticalStep("build_lines", func(ctx context.Context) error {
		lignes, notes, source := uc.buildLines(ctx, input, lead)
		if len(lignes) == 0 {
			return &DomainError{Code: CodeValidation, Message: "Aucune ligne de devis exploitable"}
		}
		numero, err := entity.NewNumero(time.Now(), nil)
		if err != nil {
			return err
		}
		devis = entity.NewDevis(lead, numero, lignes, tva, validite, notes, source)
		return nil
	})
	p.AddCriticalStep("render_pdf", func(ctx context.Context) error {
		var err error
		if pdf, err = uc.Renderer.RenderDevis(devis); err != nil {
			return NewUpstreamError("pdf", err)
		}
		if err := uc.Renderer.Validate(pdf); err != nil {
			return NewUpstreamError("pdf", err)
		}
		return nil
	})
	p.AddCriticalStep("upload_pdf", func(ctx context.Context) error {
		url, err := uc.Storage.Upload(ctx, BucketDevis, devis.Numero+".pdf", pdf, "application/pdf")
		if err != nil {
			return NewUpstreamError("storage", err)
		}
		devis.URLPDF = url
		return nil
	})
	p.AddCriticalStep("insert_devis", func(ctx context.Context) error {
		if err := uc.DevisRepo.Create(ctx, devis); err != nil {
			return NewDatabaseError("insert devis", err)
		}
		return nil
	})
	p.AddStep("send_devis_email", func(ctx context.Context) error {
		if err := uc.Notifier.SendDevis(ctx, devis, pdf); err != nil {
			return NewUpstreamError("email", err)
		}
		emailSent = true
		return nil
	})
	p.AddStep("update_lead_status", func(ctx context.Context) error {
		if err := uc.LeadRepo.UpdateStatus(ctx, lead.ID, entity.LeadStatusDevisEnvoye); err != nil {
			return NewDatabaseError("update lead status", err)
		}
		return nil
	})

	if _, err := p.Execute(ctx); err != nil {
		return nil, err
	}

	uc.logger.Info("devis generated",
		slog.String("devis_id", devis.ID),
		slog.String("numero", devis.Numero),
		slog.String("source", devis.Source),
		slog.Float64("montant_ttc", devis.MontantTTC),
	)

	return &GenerateDevisOutput{
		Status:     "success",
		Message:    fmt.Sprintf("Devis %s généré et envoyé", devis.Numero),
		DevisID:    devis.ID,
		Numero:     devis.Numero,
		URLPDF:     devis.URLPDF,
		MontantTTC: devis.MontantTTC,
		Source:     devis.Source,
		EmailSent:  emailSent,
	}, nil
}

// buildLines picks custom lines, then a negotiated budget split, then AI lines.
func (uc *GenerateDevisUseCase) buildLines(ctx context.Context, input GenerateDevisInput, lead *entity.Lead) ([]entity.LigneDevis, string, string) {
	notes := input.NotesDevisCustom
	if notes == "" {
		notes = lead.NotesDevisCustom
	}

	if len(input.LignesDevisCustom) > 0 {
		lignes := make([]entity.LigneDevis, 0, len(input.LignesDevisCustom))
		for _, l := range input.LignesDevisCustom {
			lignes = appendLine(lignes, l.Designation, l.Quantite, l.Unite, l.PrixUnitaireHT)
		}
		return lignes, notes, entity.DevisSourceCustom
	}
	if len(lead.LignesDevisCustom) > 0 {
		lignes := make([]entity.LigneDevis, 0, len(lead.LignesDevisCustom))
		for _, l := range lead.LignesDevisCustom {
			lignes = appendLine(lignes, l.Designation, l.Quantite, l.Unite, l.PrixUnitaireHT)
		}
		if len(lignes) > 0 {
			return lignes, notes, entity.DevisSourceCustom
		}
	}

	budget := 0.0
	if input.BudgetNegocie != nil {
		budget = *input.BudgetNegocie
	} else if lead.BudgetNegocie != nil {
		budget = float64(*lead.BudgetNegocie)
	}
	if budget > 0 {
		return BudgetLines(budget, surfaceOf(lead, uc.Pricing), lead.TypeProjet, uc.Pricing), notes, entity.DevisSourceBudget
	}

	lignes, aiNotes, err := uc.Lines.GenerateDevisLines(ctx, lead)
	if err != nil || len(lignes) == 0 {
		if err == nil {
			err = errors.New("no lines returned")
		}
		uc.Recorder.Record(ctx, WorkflowDevis, "ai_lines", NewUpstreamError("openai", err), map[string]any{"lead_id": lead.ID})
		return FallbackLines(surfaceOf(lead, uc.Pricing), lead.TypeProjet, uc.Pricing), notes, entity.DevisSourceOpenAI
	}
	if notes == "" {
		notes = aiNotes
	}
	return lignes, notes, entity.DevisSourceOpenAI
}

func surfaceOf(lead *entity.Lead, p config.Pricing) float64 {
	if lead.Surface != nil && *lead.Surface > 0 {
		return float64(*lead.Surface)
	}
	return p.DefaultSurface
}

// BudgetLines splits a negotiated budget into labour, materials per m², scaffolding and disposal.
// Lines whose amount rounds to zero are left out.
func BudgetLines(budget, surface float64, typeProjet string, p config.Pricing) []entity.LigneDevis {
	lignes := make([]entity.LigneDevis, 0, 4)
	lignes = appendLine(lignes, "Main d'oeuvre - travaux de "+typeProjet, 1, "forfait", entity.RoundMoney(budget*p.MainOeuvreRatio))
	lignes = appendLine(lignes, "Fourniture des matériaux", surface, "m2", entity.RoundMoney(budget*p.MateriauxRatio/surface))
	lignes = appendLine(lignes, "Echafaudage et mise en sécurité du chantier", 1, "forfait", entity.RoundMoney(budget*p.EchafaudageRatio))
	lignes = appendLine(lignes, "Evacuation et traitement des déchets", 1, "forfait", entity.RoundMoney(budget*p.EvacuationRatio))
	return lignes
}

// FallbackLines is the standard estimate used when AI line generation fails.
func FallbackLines(surface float64, typeProjet string, p config.Pricing) []entity.LigneDevis {
	lignes := make([]entity.LigneDevis, 0, 4)
	lignes = appendLine(lignes, "Travaux de "+typeProjet+" de toiture", surface, "m2", p.FallbackTravauxM2)
	lignes = appendLine(lignes, "Main d'oeuvre", surface, "m2", p.FallbackMainOeuvreM2)
	lignes = appendLine(lignes, "Echafaudage et sécurité", 1, "forfait", p.FallbackEchafaudage)
	lignes = appendLine(lignes, "Evacuation des déchets", 1, "forfait", p.FallbackEvacuation)
	return lignes
}

func appendLine(lignes []entity.LigneDevis, designation string, quantite float64, unite string, prix float64) []entity.LigneDevis {
	ligne, err := entity.NewLigneDevis(designation, quantite, unite, prix)
	if err != nil {
		return lignes
	}
	return append(lignes, ligne)
}
