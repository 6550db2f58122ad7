package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Momo-444/toitureai-api/internal/entity"
	"github.com/Momo-444/toitureai-api/internal/log"
)

const (
	WorkflowReport = "rapport_mensuel"

	BucketRapports = "rapports"
	topClientLimit = 10
)

var (
	leadWonStatuses  = statusSet("gagne", "gagné", "accepte", "accepté", "transforme", "transformé", "signe", "signé")
	leadLostStatuses = statusSet("perdu", "refuse", "refusé", "sans_suite", "rejete", "rejeté")

	devisPaidStatuses    = statusSet("paye", "payé", "payes", "payés", "paid")
	devisSignedStatuses  = statusSet("signe", "signé", "signed", "accepte", "accepté", "paye", "payé", "payes", "payés", "paid")
	devisRefusedStatuses = statusSet("refuse", "refusé", "rejete", "rejeté", "declined")
)

func statusSet(statuses ...string) map[string]bool {
	m := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

func statusIn(set map[string]bool, statut string) bool {
	return set[strings.ToLower(strings.TrimSpace(statut))]
}

type GenerateReportUseCase struct {
	LeadRepo   entity.LeadRepositoryInterface
	DevisRepo  entity.DevisRepositoryInterface
	ReportRepo entity.ReportRepositoryInterface
	Renderer   PDFRenderer
	Storage    FileStorage
	Notifier   Notifier
	Recorder   ErrorRecorder
	AdminEmail string
	Location   *time.Location
	logger     *slog.Logger
}

func NewGenerateReportUseCase(
	leadRepo entity.LeadRepositoryInterface,
	devisRepo entity.DevisRepositoryInterface,
	reportRepo entity.ReportRepositoryInterface,
	renderer PDFRenderer,
	storage FileStorage,
	notifier Notifier,
	recorder ErrorRecorder,
	adminEmail string,
	loc *time.Location,
) *GenerateReportUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &GenerateReportUseCase{
		LeadRepo:   leadRepo,
		DevisRepo:  devisRepo,
		ReportRepo: reportRepo,
		Renderer:   renderer,
		Storage:    storage,
		Notifier:   notifier,
		Recorder:   recorder,
		AdminEmail: adminEmail,
		Location:   loc,
		logger:     log.WithComponent("generate_report"),
	}
}

func (uc *GenerateReportUseCase) Execute(ctx context.Context, input GenerateReportInput) (*entity.MonthlyReport, error) {
	period, err := uc.resolvePeriod(input)
	if err != nil {
		return nil, err
	}

	send := input.EnvoyerEmail == nil || *input.EnvoyerEmail
	dest := strings.TrimSpace(input.EmailDestinataire)
	if dest == "" {
		dest = uc.AdminEmail
	}
	if send && !isValidEmail(dest) {
		return nil, NewValidationError([]ValidationError{{"email_destinataire", "is invalid"}})
	}

	return uc.generate(ctx, period, send, dest)
}

// RunScheduled builds last month's report unless one already exists for that period.
func (uc *GenerateReportUseCase) RunScheduled(ctx context.Context, now time.Time) (*entity.MonthlyReport, error) {
	period := entity.PreviousMonth(now.In(uc.Location))

	exists, err := uc.ReportRepo.ExistsForPeriod(ctx, period.Mois, period.Annee)
	if err != nil {
		err = NewDatabaseError("check report period", err)
		uc.Recorder.Record(ctx, WorkflowReport, "check_period", err, nil)
		return nil, err
	}
	if exists {
		uc.logger.Info("report already generated", slog.String("periode", period.Title()))
		return nil, nil
	}
	return uc.generate(ctx, period, true, uc.AdminEmail)
}

func (uc *GenerateReportUseCase) resolvePeriod(input GenerateReportInput) (entity.ReportPeriod, error) {
	if input.Mois == nil && input.Annee == nil {
		return entity.PreviousMonth(time.Now().In(uc.Location)), nil
	}

	now := time.Now().In(uc.Location)
	mois, annee := int(now.Month()), now.Year()
	if input.Mois != nil {
		mois = *input.Mois
	}
	if input.Annee != nil {
		annee = *input.Annee
	}

	p, err := entity.NewReportPeriod(mois, annee, uc.Location)
	if err != nil {
		field := "mois"
		if mois >= 1 && mois <= 12 {
			field = "annee"
		}
		return entity.ReportPeriod{}, NewValidationError([]ValidationError{{field, err.Error()}})
	}
	return p, nil
}

func (uc *GenerateReportUseCase) generate(ctx context.Context, period entity.ReportPeriod, send bool, dest string) (*entity.MonthlyReport, error) {
	var (
		leads  []*entity.Lead
		devis  []*entity.Devis
		report = entity.NewMonthlyReport(period)
		pdf    []byte
	)

	p := NewPipeline(WorkflowReport, uc.Recorder)
	p.AddCriticalStep("fetch_data", func(ctx context.Context) error {
		var err error
		if leads, err = uc.LeadRepo.ListCreatedBetween(ctx, period.Debut, period.Fin); err != nil {
			return NewDatabaseError("fetch leads", err)
		}
		if devis, err = uc.DevisRepo.ListCreatedBetween(ctx, period.Debut, period.Fin); err != nil {
			return NewDatabaseError("fetch devis", err)
		}
		return nil
	})
	p.AddCriticalStep("compute_kpis", func(ctx context.Context) error {
		report.Leads = ComputeLeadKPIs(leads)
		report.Devis = ComputeDevisKPIs(devis)
		report.Finance = ComputeFinancialKPIs(devis)
		report.TopClients = ComputeTopClients(devis, topClientLimit)
		return nil
	})
	p.AddCriticalStep("render_pdf", func(ctx context.Context) error {
		var err error
		if pdf, err = uc.Renderer.RenderReport(report); err != nil {
			return NewUpstreamError("pdf", err)
		}
		if err := uc.Renderer.Validate(pdf); err != nil {
			return NewUpstreamError("pdf", err)
		}
		return nil
	})
	p.AddCriticalStep("upload_pdf", func(ctx context.Context) error {
		path := fmt.Sprintf("rapport_%d_%02d.pdf", period.Annee, period.Mois)
		url, err := uc.Storage.Upload(ctx, BucketRapports, path, pdf, "application/pdf")
		if err != nil {
			return NewUpstreamError("storage", err)
		}
		report.URLPDF = url
		return nil
	})
	p.AddCriticalStep("save_report", func(ctx context.Context) error {
		if err := uc.ReportRepo.Create(ctx, report); err != nil {
			return NewDatabaseError("insert report", err)
		}
		return nil
	})
	if send {
		p.AddStep("send_report_email", func(ctx context.Context) error {
			if err := uc.Notifier.SendMonthlyReport(ctx, report, dest, pdf); err != nil {
				return NewUpstreamError("email", err)
			}
			if err := uc.ReportRepo.MarkSent(ctx, report.ID, dest); err != nil {
				return NewDatabaseError("mark report sent", err)
			}
			report.EmailEnvoye = true
			report.Destinataire = dest
			return nil
		})
	}

	if _, err := p.Execute(ctx); err != nil {
		return nil, err
	}

	uc.logger.Info("report generated",
		slog.String("report_id", report.ID),
		slog.String("periode", period.Title()),
		slog.Int("leads", report.Leads.Total),
		slog.Int("devis", report.Devis.Total),
		slog.Bool("email_envoye", report.EmailEnvoye),
	)
	return report, nil
}

func (uc *GenerateReportUseCase) Get(ctx context.Context, id string) (*entity.MonthlyReport, error) {
	if err := checkUUID("rapport_id", id); err != nil {
		return nil, err
	}
	r, err := uc.ReportRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("Rapport %s non trouvé", id))
		}
		return nil, NewDatabaseError("find report", err)
	}
	return r, nil
}

func (uc *GenerateReportUseCase) List(ctx context.Context, limit int) ([]*entity.MonthlyReport, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = 12
	}
	list, err := uc.ReportRepo.List(ctx, limit)
	if err != nil {
		return nil, NewDatabaseError("list reports", err)
	}
	if list == nil {
		list = []*entity.MonthlyReport{}
	}
	return list, nil
}

func ComputeLeadKPIs(leads []*entity.Lead) entity.LeadKPIs {
	k := entity.LeadKPIs{Total: len(leads)}
	for _, l := range leads {
		switch {
		case statusIn(leadWonStatuses, l.Statut):
			k.Gagnes++
		case statusIn(leadLostStatuses, l.Statut):
			k.Perdus++
		}
	}
	k.EnCours = k.Total - k.Gagnes - k.Perdus
	k.TauxConversion = percent(k.Gagnes, k.Total)
	k.TauxPerte = percent(k.Perdus, k.Total)
	return k
}

func ComputeDevisKPIs(devis []*entity.Devis) entity.DevisKPIs {
	k := entity.DevisKPIs{Total: len(devis)}
	for _, d := range devis {
		if statusIn(devisSignedStatuses, d.Statut) {
			k.Signes++
		}
		if statusIn(devisPaidStatuses, d.Statut) {
			k.Payes++
		}
		if statusIn(devisRefusedStatuses, d.Statut) {
			k.Refuses++
		}
	}
	k.EnAttente = k.Total - k.Signes - k.Refuses
	k.TauxSignature = percent(k.Signes, k.Total)
	k.TauxPaiement = percent(k.Payes, k.Signes)
	return k
}

func ComputeFinancialKPIs(devis []*entity.Devis) entity.FinancialKPIs {
	var f entity.FinancialKPIs
	signes := 0
	for _, d := range devis {
		switch {
		case statusIn(devisSignedStatuses, d.Statut):
			signes++
			f.CAMensuel += d.MontantTTC
			if statusIn(devisPaidStatuses, d.Statut) {
				f.CAEncaisse += d.MontantTTC
			}
		case statusIn(devisRefusedStatuses, d.Statut):
		default:
			f.CAPotentiel += d.MontantTTC
		}
	}
	if signes > 0 {
		f.PanierMoyen = f.CAMensuel / float64(signes)
	}
	f.CAMensuel = entity.RoundMoney(f.CAMensuel)
	f.CAEncaisse = entity.RoundMoney(f.CAEncaisse)
	f.CAPotentiel = entity.RoundMoney(f.CAPotentiel)
	f.PanierMoyen = entity.RoundMoney(f.PanierMoyen)
	return f
}

// ComputeTopClients ranks clients by signed TTC, grouped by lowercased email.
func ComputeTopClients(devis []*entity.Devis, limit int) []entity.TopClient {
	byEmail := map[string]*entity.TopClient{}
	for _, d := range devis {
		if !statusIn(devisSignedStatuses, d.Statut) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(d.ClientEmail))
		if email == "" {
			continue
		}
		c, ok := byEmail[email]
		if !ok {
			nom := d.ClientFullName()
			if nom == "" {
				nom = "Client"
			}
			c = &entity.TopClient{Nom: nom, Email: email, Ville: d.ClientVille}
			byEmail[email] = c
		}
		c.NbDevis++
		c.MontantTotal += d.MontantTTC
	}

	clients := make([]entity.TopClient, 0, len(byEmail))
	for _, c := range byEmail {
		c.MontantTotal = entity.RoundMoney(c.MontantTotal)
		clients = append(clients, *c)
	}
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].MontantTotal != clients[j].MontantTotal {
			return clients[i].MontantTotal > clients[j].MontantTotal
		}
		return clients[i].Email < clients[j].Email
	})
	if len(clients) > limit {
		clients = clients[:limit]
	}
	for i := range clients {
		clients[i].Rang = i + 1
	}
	return clients
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
