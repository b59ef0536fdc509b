package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"riskdash/internal/render"
	"riskdash/internal/services"
)

var (
	headerColor    = [3]int{40, 40, 40}
	headerText     = [3]int{255, 255, 255}
	bodyTextColor  = [3]int{50, 50, 50}
	lineColor      = [3]int{200, 200, 200}
	stripeColor    = [3]int{240, 240, 240}
	pageTextWidth  = 190.0
	chartImageType = "PNG"
)

// WritePDF lays out the KPIs, the panel tables and any charts on A4 pages.
func WritePDF(w io.Writer, r Report) error {
	d := r.Dashboard
	title := r.Title
	if title == "" {
		title = "Risk Dashboard"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreationDate(d.GeneratedAt)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s | %s", title, d.GeneratedAt.Format("2006-01-02"))), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(headerText[0], headerText[1], headerText[2])
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr("  "+title), "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(stripeColor[0], stripeColor[1], stripeColor[2])
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	subtitle := fmt.Sprintf("  Year: %s   Records: %d", d.Year, d.Records)
	if d.Dataset != "" {
		subtitle += "   Dataset: " + d.Dataset
	}
	pdf.CellFormat(0, 8, tr(subtitle), "", 1, "L", true, 0, "")
	pdf.Ln(6)

	section := func(name string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.Cell(0, 8, tr(name))
		pdf.Ln(7)
		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+pageTextWidth, pdf.GetY())
		pdf.Ln(3)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	}

	table := func(header []string, rows [][]string) {
		width := pageTextWidth / float64(len(header))
		pdf.SetFont("Arial", "B", 9)
		for _, h := range header {
			pdf.CellFormat(width, 7, tr(h), "B", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for i, row := range rows {
			for _, cell := range row {
				pdf.CellFormat(width, 6, tr(cell), "", 0, "L", i%2 == 1, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(5)
	}

	if k := d.KPIs; k != nil {
		section("Key indicators")
		rows := [][]string{
			{k.ApprovalRate.Key, k.ApprovalRate.Display},
			{k.DelinquencyRate.Key, k.DelinquencyRate.Display},
		}
		for _, row := range k.RequestsPerQuarter {
			rows = append(rows, []string{"Requests " + row.Key, row.Display})
		}
		for _, row := range k.RepaymentPerQuarter {
			rows = append(rows, []string{"Repayment " + row.Key, row.Display})
		}
		for _, row := range k.AvgPurchaseByType {
			rows = append(rows, []string{"Avg purchase " + row.Key, row.Display})
		}
		table([]string{"Indicator", "Value"}, rows)
	}

	if m := d.Monthly; m != nil && !m.Empty {
		section("Monthly totals")
		var rows [][]string
		for _, b := range m.Buckets {
			rows = append(rows, []string{render.BucketLabel(b.Key), b.Sum.StringFixed(2)})
		}
		for _, a := range m.Averages {
			rows = append(rows, []string{a.Quarter.Label() + " average", a.Mean.StringFixed(2)})
		}
		table([]string{"Month", m.Field}, rows)
	}

	if rk := d.Risk; rk != nil && !rk.Empty {
		section("Risk clients by month")
		var rows [][]string
		for _, row := range rk.Rows {
			rows = append(rows, []string{
				row.Label,
				strconv.Itoa(row.Class0),
				strconv.Itoa(row.Class1),
				row.Pct.Format(2),
			})
		}
		table([]string{"Month", "Class 0", "Class 1", "Risk %"}, rows)
	}

	if a := d.Age; a != nil {
		section("Accounts by age (" + a.Variant + ")")
		var rows [][]string
		for _, b := range a.Buckets {
			rows = append(rows, []string{b.Label, strconv.Itoa(b.Count)})
		}
		table([]string{"Age", "Accounts"}, rows)
	}

	if len(d.Errors) > 0 {
		section("Unavailable panels")
		var rows [][]string
		for _, name := range []string{services.PanelMonthly, services.PanelRisk, services.PanelAge, services.PanelKPIs} {
			if msg, ok := d.Errors[name]; ok {
				rows = append(rows, []string{name, msg})
			}
		}
		table([]string{"Panel", "Error"}, rows)
	}

	for _, name := range render.Names() {
		img, ok := r.Charts[name]
		if !ok || len(img) == 0 {
			continue
		}
		pdf.AddPage()
		opts := gofpdf.ImageOptions{ImageType: chartImageType}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
		pdf.ImageOptions(name, 10, 20, pageTextWidth, 0, false, opts, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
