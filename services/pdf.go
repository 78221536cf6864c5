package services

import (
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
	log "github.com/sirupsen/logrus"

	"otoil-backend/config"
	"otoil-backend/models"
	"otoil-backend/utils"
)

const (
	pageMargin  = 15.0
	barWidth    = 8.0
	labelWidth  = 50.0
	rowHeight   = 7.0
	formTitle   = "Arac Bakim Hizmet Formu"
	currencySfx = " TL"
)

// PDFRenderer draws the printable service form of a record.
type PDFRenderer struct {
	cfg      config.PDFConfig
	compress bool
	logger   *log.Entry
}

func NewPDFRenderer(cfg config.PDFConfig) *PDFRenderer {
	return &PDFRenderer{
		cfg:      cfg,
		compress: true,
		logger:   log.WithField("component", "pdf"),
	}
}

type formRow struct {
	label string
	value string
}

func (r *PDFRenderer) rows(record models.ServiceRecord) []formRow {
	staff := record.StaffName
	if staff == "" {
		staff = r.cfg.StaffName
	}
	rows := []formRow{
		{"Musteri Adi", record.CustomerName},
		{"Telefon", record.Phone},
		{"Plaka", record.Plate},
		{"Arac Modeli", record.VehicleModel},
		{"Hizmet Tarihi", utils.FormatDate(record.ServiceDate)},
		{"Yapilan Islemler", record.WorkPerformed},
		{"Ucret", utils.FormatFee(record.Fee) + currencySfx},
		{"Personel", staff},
	}
	if record.CheckupNotes != "" {
		rows = append(rows, formRow{"Kontrol Notlari", record.CheckupNotes})
	}
	if record.NextServiceDate != nil {
		rows = append(rows, formRow{"Sonraki Bakim", utils.FormatDate(*record.NextServiceDate)})
	}
	return rows
}

// Render writes the form as a paginated A4 PDF. A missing logo is logged and
// the form is drawn without it.
func (r *PDFRenderer) Render(w io.Writer, record models.ServiceRecord) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin+barWidth)
	pdf.SetAutoPageBreak(true, 30)
	pdf.SetTitle(formTitle, false)

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin - barWidth

	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(30, 64, 175)
		pdf.Rect(pageW-barWidth, 0, barWidth, pageH, "F")
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-25)
		pdf.SetDrawColor(200, 200, 200)
		pdf.Line(pageMargin, pdf.GetY(), pageMargin+contentW, pdf.GetY())
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(contentW, 4, utils.ToASCII(r.cfg.ShopName+" | "+r.cfg.Contact+" | "+r.cfg.Web), "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 6.5)
		pdf.MultiCell(contentW, 3, utils.ToASCII(r.cfg.Disclaimer), "", "C", false)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(contentW, 4, fmt.Sprintf("Sayfa %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	r.drawLogo(pdf)

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 64, 175)
	pdf.CellFormat(contentW, 10, formTitle, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(contentW, 6, "Tarih: "+utils.FormatDate(record.ServiceDate), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(20, 20, 20)
	valueW := contentW - labelWidth
	for i, row := range r.rows(record) {
		value := utils.ToASCII(row.value)
		if value == "" {
			value = "-"
		}
		pdf.SetFont("Helvetica", "", 10)
		lines := pdf.SplitText(value, valueW-2)
		h := rowHeight * float64(max(len(lines), 1))
		labelH := h
		if h > pageH-30-pageMargin {
			// Taller than a page: the value flows over page breaks on its own.
			labelH = rowHeight
		} else if pdf.GetY()+h > pageH-30 {
			pdf.AddPage()
		}

		if i%2 == 0 {
			pdf.SetFillColor(243, 244, 246)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		x, y := pdf.GetXY()
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, labelH, utils.ToASCII(row.label), "", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(x+labelWidth, y)
		pdf.MultiCell(valueW, rowHeight, value, "", "L", true)
	}

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW/2, 6, "Musteri Imza", "T", 0, "C", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Yetkili Imza", "T", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		r.logger.WithError(err).WithField("recordId", record.ID).Error("pdf render failed")
		return err
	}
	return nil
}

func (r *PDFRenderer) drawLogo(pdf *fpdf.Fpdf) {
	if r.cfg.LogoPath == "" {
		return
	}
	if _, err := os.Stat(r.cfg.LogoPath); err != nil {
		r.logger.WithError(err).Warn("logo not available, rendering without it")
		return
	}
	pdf.ImageOptions(r.cfg.LogoPath, pageMargin, pageMargin, 35, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	if pdf.Err() {
		r.logger.WithError(pdf.Error()).Warn("logo could not be loaded, rendering without it")
		pdf.ClearError()
		return
	}
	pdf.SetY(pageMargin + 22)
}
