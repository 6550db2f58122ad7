package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Momo-444/toitureai-api/internal/config"
	"github.com/Momo-444/toitureai-api/internal/entity"
)

// MaxSize bounds any PDF we accept from upstream.
const MaxSize = 20 << 20

var ErrNotPDF = errors.New("content is not a PDF document")

const (
	pageWidth   = 210.0
	marginLeft  = 15.0
	marginRight = 15.0
	contentW    = pageWidth - marginLeft - marginRight
)

func init() {
	// keep pdfcpu from creating a config dir under $HOME
	api.DisableConfigDir()
}

type Renderer struct {
	Company config.Company
	now     func() time.Time
}

func NewRenderer(company config.Company) *Renderer {
	return &Renderer{Company: company, now: time.Now}
}

// document wraps fpdf with a cp1252 translator so accents and € survive the core fonts.
type document struct {
	*fpdf.Fpdf
	tr func(string) string
}

func (r *Renderer) newDocument(title string) *document {
	f := fpdf.New("P", "mm", "A4", "")
	f.SetMargins(marginLeft, 15, marginRight)
	f.SetAutoPageBreak(true, 20)
	f.SetTitle(title, true)
	f.SetAuthor(r.Company.Name, true)
	f.SetCreationDate(r.now())
	f.AliasNbPages("")

	d := &document{Fpdf: f, tr: f.UnicodeTranslatorFromDescriptor("")}
	f.SetFooterFunc(func() {
		f.SetY(-15)
		f.SetFont("Helvetica", "I", 8)
		f.SetTextColor(120, 120, 120)
		footer := fmt.Sprintf("%s - SIRET %s - TVA %s - RGE %s", r.Company.Name, r.Company.Siret, r.Company.TVAIntracom, r.Company.RGE)
		f.CellFormat(0, 4, d.tr(footer), "", 1, "C", false, 0, "")
		f.CellFormat(0, 4, fmt.Sprintf("Page %d/{nb}", f.PageNo()), "", 0, "C", false, 0, "")
	})
	return d
}

func (d *document) text(w, h float64, s, border string, ln int, align string, fill bool) {
	d.CellFormat(w, h, d.tr(s), border, ln, align, fill, 0, "")
}

func (d *document) heading(s string) {
	d.Ln(4)
	d.SetFont("Helvetica", "B", 12)
	d.SetTextColor(30, 58, 138)
	d.text(0, 7, s, "B", 1, "L", false)
	d.SetTextColor(0, 0, 0)
	d.Ln(2)
}

func (d *document) keyValue(key, value string) {
	d.SetFont("Helvetica", "", 10)
	d.text(70, 6, key, "", 0, "L", false)
	d.SetFont("Helvetica", "B", 10)
	d.text(0, 6, value, "", 1, "L", false)
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) companyHeader(d *document) {
	d.SetFont("Helvetica", "B", 18)
	d.SetTextColor(30, 58, 138)
	d.text(0, 9, r.Company.Name, "", 1, "L", false)
	d.SetTextColor(80, 80, 80)
	d.SetFont("Helvetica", "", 9)
	d.text(0, 5, r.Company.Address, "", 1, "L", false)
	d.text(0, 5, r.Company.Phone+" - "+r.Company.Email, "", 1, "L", false)
	d.SetTextColor(0, 0, 0)
	d.Ln(6)
}

func (r *Renderer) RenderDevis(dv *entity.Devis) ([]byte, error) {
	if dv == nil {
		return nil, errors.New("nil devis")
	}
	d := r.newDocument("Devis " + dv.Numero)
	d.AddPage()
	r.companyHeader(d)

	d.SetFont("Helvetica", "B", 16)
	d.text(0, 9, "DEVIS N° "+dv.Numero, "", 1, "R", false)
	d.SetFont("Helvetica", "", 10)
	d.text(0, 5, "Date : "+dv.CreatedAt.Format("02/01/2006"), "", 1, "R", false)
	d.text(0, 5, fmt.Sprintf("Valable jusqu'au : %s (%d jours)", dv.DateValidite.Format("02/01/2006"), dv.ValiditeJours), "", 1, "R", false)
	d.Ln(4)

	d.heading("Client")
	d.SetFont("Helvetica", "", 10)
	d.text(0, 5, dv.ClientFullName(), "", 1, "L", false)
	if dv.ClientAdresse != "" {
		d.text(0, 5, dv.ClientAdresse, "", 1, "L", false)
	}
	d.text(0, 5, strings.Trim(dv.ClientEmail+" - "+dv.ClientTelephone, " -"), "", 1, "L", false)

	d.heading("Détail des travaux")
	widths := []float64{80, 20, 20, 30, 30}
	d.SetFont("Helvetica", "B", 9)
	d.SetFillColor(229, 231, 235)
	for i, h := range []string{"Désignation", "Qté", "Unité", "PU HT", "Total HT"} {
		d.text(widths[i], 7, h, "1", 0, "C", true)
	}
	d.Ln(-1)

	d.SetFont("Helvetica", "", 9)
	for _, l := range dv.Lignes {
		d.text(widths[0], 7, truncate(l.Designation, 48), "1", 0, "L", false)
		d.text(widths[1], 7, formatQty(l.Quantite), "1", 0, "R", false)
		d.text(widths[2], 7, l.Unite, "1", 0, "C", false)
		d.text(widths[3], 7, entity.FormatEuro(l.PrixUnitaireHT), "1", 0, "R", false)
		d.text(widths[4], 7, entity.FormatEuro(l.TotalHT), "1", 1, "R", false)
	}

	d.Ln(3)
	totals := [][2]string{
		{"Total HT", entity.FormatEuro(dv.MontantHT)},
		{fmt.Sprintf("TVA %s %%", formatQty(dv.TVAPct)), entity.FormatEuro(dv.MontantTVA)},
		{"Total TTC", entity.FormatEuro(dv.MontantTTC)},
	}
	for i, t := range totals {
		style := ""
		if i == len(totals)-1 {
			style = "B"
		}
		d.SetFont("Helvetica", style, 10)
		d.SetX(marginLeft + contentW - 70)
		d.text(40, 7, t[0], "1", 0, "L", i == len(totals)-1)
		d.text(30, 7, t[1], "1", 1, "R", i == len(totals)-1)
	}

	if dv.Notes != "" {
		d.heading("Notes")
		d.SetFont("Helvetica", "", 9)
		d.MultiCell(0, 5, d.tr(dv.Notes), "", "L", false)
	}

	d.Ln(8)
	d.SetFont("Helvetica", "B", 10)
	d.text(contentW/2, 6, "Bon pour accord", "", 0, "L", false)
	d.text(contentW/2, 6, "Date et signature du client", "", 1, "L", false)
	d.Rect(marginLeft+contentW/2, d.GetY(), contentW/2, 25, "D")

	return d.bytes()
}

func (r *Renderer) RenderReport(rep *entity.MonthlyReport) ([]byte, error) {
	if rep == nil {
		return nil, errors.New("nil report")
	}
	d := r.newDocument("Rapport mensuel " + rep.Periode.Title())
	d.AddPage()
	r.companyHeader(d)

	d.SetFont("Helvetica", "B", 16)
	d.text(0, 9, "Rapport mensuel : "+rep.Periode.Title(), "", 1, "C", false)
	d.SetFont("Helvetica", "", 9)
	d.text(0, 5, "Généré le "+rep.GenereLe.Format("02/01/2006 15:04"), "", 1, "C", false)

	d.heading("Leads")
	d.keyValue("Leads reçus", strconv.Itoa(rep.Leads.Total))
	d.keyValue("Gagnés", fmt.Sprintf("%d (%s %%)", rep.Leads.Gagnes, formatQty(rep.Leads.TauxConversion)))
	d.keyValue("Perdus", fmt.Sprintf("%d (%s %%)", rep.Leads.Perdus, formatQty(rep.Leads.TauxPerte)))
	d.keyValue("En cours", strconv.Itoa(rep.Leads.EnCours))

	d.heading("Devis")
	d.keyValue("Devis émis", strconv.Itoa(rep.Devis.Total))
	d.keyValue("Signés", fmt.Sprintf("%d (%s %%)", rep.Devis.Signes, formatQty(rep.Devis.TauxSignature)))
	d.keyValue("Payés", fmt.Sprintf("%d (%s %%)", rep.Devis.Payes, formatQty(rep.Devis.TauxPaiement)))
	d.keyValue("En attente", strconv.Itoa(rep.Devis.EnAttente))
	d.keyValue("Refusés", strconv.Itoa(rep.Devis.Refuses))

	d.heading("Chiffre d'affaires")
	d.keyValue("CA signé", entity.FormatEuro(rep.Finance.CAMensuel))
	d.keyValue("CA encaissé", entity.FormatEuro(rep.Finance.CAEncaisse))
	d.keyValue("Panier moyen", entity.FormatEuro(rep.Finance.PanierMoyen))
	d.keyValue("CA potentiel", entity.FormatEuro(rep.Finance.CAPotentiel))

	if len(rep.TopClients) > 0 {
		d.heading("Meilleurs clients")
		widths := []float64{12, 78, 30, 60}
		d.SetFont("Helvetica", "B", 9)
		d.SetFillColor(229, 231, 235)
		for i, h := range []string{"#", "Client", "Devis", "Montant TTC"} {
			d.text(widths[i], 7, h, "1", 0, "C", true)
		}
		d.Ln(-1)
		d.SetFont("Helvetica", "", 9)
		for _, c := range rep.TopClients {
			d.text(widths[0], 7, strconv.Itoa(c.Rang), "1", 0, "C", false)
			d.text(widths[1], 7, truncate(c.Nom, 45), "1", 0, "L", false)
			d.text(widths[2], 7, strconv.Itoa(c.NbDevis), "1", 0, "C", false)
			d.text(widths[3], 7, entity.FormatEuro(c.MontantTotal), "1", 1, "R", false)
		}
	}

	return d.bytes()
}

// Validate checks that content parses as a PDF. Used on rendered output and on signed
// documents downloaded from DocuSeal before they are stored.
func (r *Renderer) Validate(content []byte) error {
	if len(content) > MaxSize {
		return fmt.Errorf("pdf is %d bytes, max %d", len(content), MaxSize)
	}
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return ErrNotPDF
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(content), conf); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	pages, err := api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if pages == 0 {
		return fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return nil
}

func formatQty(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
