// Package report renders the public tracking view as a downloadable PDF.
//
// The document has a title banner, the tracking identifier with a status
// badge, sender and receiver blocks, a specifications table, the transit log
// (newest first, breaking across pages as needed) and a footer carrying the
// generation time and page numbers. Rendering reads only the view; it never
// touches stored data.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// Options control branding and time formatting.
type Options struct {
	Title    string
	Company  string
	Location *time.Location
	Now      func() time.Time
}

type rgb struct{ r, g, b int }

var (
	brandBlue = rgb{30, 64, 175}
	textDark  = rgb{31, 41, 55}
	textMuted = rgb{107, 114, 128}
	panelGray = rgb{243, 244, 246}

	badgeColors = map[string]rgb{
		"pending":    {234, 179, 8},
		"in-transit": {37, 99, 235},
		"delivered":  {22, 163, 74},
		"delayed":    {234, 88, 12},
		"exception":  {220, 38, 38},
	}
)

// Filename is the download name for a tracking report.
func Filename(trackingID string) string {
	return "tracking-" + trackingID + ".pdf"
}

// Renderer produces PDF reports.
type Renderer struct {
	opts  Options
	title cases.Caser
}

// New returns a Renderer. Zero-valued options get sensible defaults.
func New(opts Options) *Renderer {
	if opts.Title == "" {
		opts.Title = "Shipment Tracking Report"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{opts: opts, title: cases.Title(language.English)}
}

// Render writes the PDF for v to w.
func (r *Renderer) Render(w io.Writer, v services.TrackingView) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("{nb}")
	pdf.SetTitle(r.opts.Title+" "+v.TrackingID, true)
	if r.opts.Company != "" {
		pdf.SetAuthor(r.opts.Company, true)
	}

	generated := r.opts.Now().In(r.opts.Location)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		setText(pdf, textMuted)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Generated %s at %s", generated.Format(services.DateLayout), generated.Format(services.TimeLayout))), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	// Banner
	setFill(pdf, brandBlue)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentW, 14, tr(r.opts.Title), "", 1, "C", true, 0, "")
	if r.opts.Company != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW, 7, tr(r.opts.Company), "", 1, "C", true, 0, "")
	}
	pdf.Ln(6)

	// Tracking id + status badge
	setText(pdf, textDark)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW/2, 6, "Tracking Number", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Status", "", 1, "R", false, 0, "")
	pdf.SetFont("Courier", "B", 16)
	pdf.CellFormat(contentW/2, 10, tr(v.TrackingID), "", 0, "L", false, 0, "")
	badge, ok := badgeColors[v.Status]
	if !ok {
		badge = textMuted
	}
	setFill(pdf, badge)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	label := r.title.String(strings.ToLower(v.StatusText))
	badgeW := pdf.GetStringWidth(label) + 10
	pdf.SetX(left + contentW - badgeW)
	pdf.CellFormat(badgeW, 10, tr(label), "", 1, "C", true, 0, "")
	pdf.Ln(6)

	// Sender / receiver
	colW := (contentW - 6) / 2
	y := pdf.GetY()
	r.partyBlock(pdf, tr, left, y, colW, "Sender", []string{v.Sender.Name, v.Sender.Company, v.Sender.Phone})
	yLeft := pdf.GetY()
	r.partyBlock(pdf, tr, left+colW+6, y, colW, "Receiver", []string{v.Recipient.Name, v.Recipient.Company, v.Recipient.Address, v.Recipient.Phone})
	if yLeft > pdf.GetY() {
		pdf.SetY(yLeft)
	}
	pdf.Ln(6)

	// Specifications
	r.heading(pdf, tr, contentW, "Shipment Details")
	actual := "-"
	if v.ActualDelivery != nil {
		actual = v.ActualDelivery.In(r.opts.Location).Format(services.DateLayout)
	}
	rows := [][2]string{
		{"Service", v.Service},
		{"Weight", v.Weight},
		{"Dimensions", v.Dimensions},
		{"Origin", v.Origin},
		{"Destination", v.Destination},
		{"Current Location", v.CurrentLocation},
		{"Estimated Delivery", v.EstimatedDelivery.In(r.opts.Location).Format(services.DateLayout)},
		{"Actual Delivery", actual},
	}
	pdf.SetFont("Helvetica", "", 10)
	for i, row := range rows {
		fill := i%2 == 0
		setFill(pdf, panelGray)
		setText(pdf, textMuted)
		pdf.CellFormat(contentW*0.35, 7, tr(row[0]), "", 0, "L", fill, 0, "")
		setText(pdf, textDark)
		pdf.CellFormat(contentW*0.65, 7, tr(row[1]), "", 1, "L", fill, 0, "")
	}
	pdf.Ln(6)

	// Transit log
	r.heading(pdf, tr, contentW, "Transit History")
	dateW, statusW := contentW*0.25, contentW*0.22
	descW := contentW - dateW - statusW
	for _, ev := range v.Events {
		// keep each entry on one page
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		top := pdf.GetY()
		setText(pdf, textMuted)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(dateW, 5, tr(ev.Date+"\n"+ev.Time), "", "L", false)
		bottom := pdf.GetY()

		pdf.SetXY(left+dateW, top)
		setText(pdf, textDark)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(statusW, 5, tr(ev.Status), "", "L", false)
		if pdf.GetY() > bottom {
			bottom = pdf.GetY()
		}

		pdf.SetXY(left+dateW+statusW, top)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(descW, 5, tr(ev.Description), "", "L", false)
		pdf.SetX(left + dateW + statusW)
		setText(pdf, textMuted)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(descW, 5, tr(ev.Location), "", "L", false)
		if pdf.GetY() > bottom {
			bottom = pdf.GetY()
		}
		pdf.SetY(bottom + 2)
		pdf.SetDrawColor(229, 231, 235)
		pdf.Line(left, pdf.GetY(), left+contentW, pdf.GetY())
		pdf.Ln(2)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// RenderBytes renders into memory so callers can set Content-Length and
// fail cleanly before any byte is written.
func (r *Renderer) RenderBytes(v services.TrackingView) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) heading(pdf *fpdf.Fpdf, tr func(string) string, w float64, text string) {
	setText(pdf, brandBlue)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(w, 8, tr(text), "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (r *Renderer) partyBlock(pdf *fpdf.Fpdf, tr func(string) string, x, y, w float64, title string, lines []string) {
	pdf.SetXY(x, y)
	setText(pdf, brandBlue)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(w, 7, tr(title), "", 2, "L", false, 0, "")
	setText(pdf, textDark)
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range lines {
		pdf.SetX(x)
		pdf.MultiCell(w, 5, tr(l), "", "L", false)
	}
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
