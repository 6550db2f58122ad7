package usecase

import (
	"context"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

type Qualifier interface {
	Qualify(ctx context.Context, lead *entity.Lead) (entity.Qualification, error)
}

type DevisLineGenerator interface {
	GenerateDevisLines(ctx context.Context, lead *entity.Lead) ([]entity.LigneDevis, string, error)
}

type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type TrackingSigner interface {
	TrackingURLs(leadID string) (clickURL, openURL string)
	Verify(leadID, eventType, signature string) bool
}

type Notifier interface {
	SendLeadConfirmation(ctx context.Context, lead *entity.Lead, links TrackingLinks) error
	SendTeamAlert(ctx context.Context, lead *entity.Lead, hot bool) error
	SendDevis(ctx context.Context, devis *entity.Devis, pdf []byte) error
	SendSignatureConfirmation(ctx context.Context, devis *entity.Devis) error
	SendMonthlyReport(ctx context.Context, report *entity.MonthlyReport, to string, pdf []byte) error
}

type PDFRenderer interface {
	RenderDevis(devis *entity.Devis) ([]byte, error)
	RenderReport(report *entity.MonthlyReport) ([]byte, error)
	Validate(pdf []byte) error
}

type FileStorage interface {
	Upload(ctx context.Context, bucket, path string, content []byte, contentType string) (string, error)
}

type DocumentFetcher interface {
	DownloadDocument(ctx context.Context, url string) ([]byte, error)
}

type ErrorRecorder interface {
	Record(ctx context.Context, workflow, node string, err error, details map[string]any)
}
