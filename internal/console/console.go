// Package console prints dashboard panels as terminal tables.
package console

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"riskdash/internal/analytics"
	"riskdash/internal/core"
	"riskdash/internal/kpi"
	"riskdash/internal/render"
	"riskdash/internal/services"
)

const barWidth = 40

var (
	Title   = color.New(color.FgCyan, color.Bold).SprintFunc()
	Danger  = color.New(color.FgRed, color.Bold).SprintFunc()
	Good    = color.New(color.FgGreen, color.Bold).SprintFunc()
	Caution = color.New(color.FgYellow, color.Bold).SprintFunc()
	Muted   = color.New(color.FgHiBlack).SprintFunc()
)

type Console struct {
	w io.Writer
}

// New writes to w, or to stdout when w is nil.
func New(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Info(format string, a ...any) {
	pterm.Info.WithWriter(c.w).Printfln(format, a...)
}

func (c *Console) Warning(format string, a ...any) {
	pterm.Warning.WithWriter(c.w).Printfln(format, a...)
}

func (c *Console) Error(format string, a ...any) {
	pterm.Error.WithWriter(c.w).Printfln(format, a...)
}

func (c *Console) Success(format string, a ...any) {
	pterm.Success.WithWriter(c.w).Printfln(format, a...)
}

// Summary prints every panel of a dashboard.
func (c *Console) Summary(d services.Dashboard) {
	header := fmt.Sprintf("Year: %s   Records: %d", d.Year, d.Records)
	if d.Dataset != "" {
		header += "   Dataset: " + d.Dataset
	}
	fmt.Fprintln(c.w, Title(header))

	if d.KPIs != nil {
		c.KPIs(*d.KPIs)
	}
	if d.Monthly != nil {
		c.Monthly(*d.Monthly)
	}
	if d.Risk != nil {
		c.Risk(*d.Risk)
	}
	if d.Age != nil {
		c.Age(*d.Age)
	}

	names := make([]string, 0, len(d.Errors))
	for name := range d.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.Warning("%s panel unavailable: %s", name, d.Errors[name])
	}
}

// KPIs prints the indicator panel.
func (c *Console) KPIs(p kpi.Panel) {
	data := pterm.TableData{
		{"Indicator", "Value"},
		{p.ApprovalRate.Key, Good(p.ApprovalRate.Display)},
		{p.DelinquencyRate.Key, Danger(p.DelinquencyRate.Display)},
	}
	for _, group := range []struct {
		title string
		rows  []kpi.Row
	}{
		{kpi.KeyRequestsPerQuarter, p.RequestsPerQuarter},
		{kpi.KeyRepaymentPerQuarter, p.RepaymentPerQuarter},
		{kpi.KeyAvgPurchaseByType, p.AvgPurchaseByType},
	} {
		for _, r := range group.rows {
			data = append(data, []string{group.title + " / " + r.Key, r.Display})
		}
	}
	c.box("Key Indicators", data)
}

// Monthly prints one bar per bucket and the quarterly averages.
func (c *Console) Monthly(s core.MonthlySeries) {
	if s.Empty {
		c.Warning("No monthly data for %s", s.Field)
		return
	}
	max := 0.0
	for _, b := range s.Buckets {
		max = math.Max(max, b.Sum.InexactFloat64())
	}
	avg := make(map[core.BucketKey]string, len(s.Overlay))
	for _, p := range s.Overlay {
		avg[p.At] = p.Value.StringFixed(2)
	}

	data := pterm.TableData{{"Month", s.Field, "", "Quarter avg"}}
	for _, b := range s.Buckets {
		v := b.Sum.InexactFloat64()
		data = append(data, []string{
			render.BucketLabel(b.Key),
			b.Sum.StringFixed(2),
			pterm.FgGreen.Sprint(bar(v, max)),
			avg[b.Key],
		})
	}
	c.box("Monthly totals", data)
}

// Risk prints class counts and the risk percentage per month.
func (c *Console) Risk(s core.RiskSeries) {
	if s.Empty {
		c.Warning("No risk data for %s", s.Field)
		return
	}
	data := pterm.TableData{{"Month", "Class 0", "Class 1", "Total", "Risk %"}}
	for _, r := range s.Rows {
		data = append(data, []string{
			r.Label,
			strconv.Itoa(r.Class0),
			strconv.Itoa(r.Class1),
			strconv.Itoa(r.Total),
			riskPct(r.Pct),
		})
	}
	c.box("Risk clients by month", data)
}

// Age prints the account-age buckets.
func (c *Console) Age(s core.AgeSeries) {
	max := 0.0
	for _, b := range s.Buckets {
		max = math.Max(max, float64(b.Count))
	}
	data := pterm.TableData{{"Age", "Accounts", ""}}
	for _, b := range s.Buckets {
		data = append(data, []string{b.Label, strconv.Itoa(b.Count), pterm.FgBlue.Sprint(bar(float64(b.Count), max))})
	}
	c.box("Accounts by age ("+s.Variant+")", data)
}

// Years prints the selectable years.
func (c *Console) Years(o services.YearOptions) {
	fmt.Fprintln(c.w, Title("Years:"), strings.Join(o.Options, ", "))
	if o.Affiliation != nil {
		fmt.Fprintln(c.w, Title("Affiliation years:"), o.Affiliation.String())
	}
}

// Profile prints the per-risk summary and the seasonality table.
func (c *Console) Profile(p analytics.Profile) {
	if p.Empty {
		c.Warning("No loans match the profile filter")
		return
	}
	summary := pterm.TableData{{"Risk", "Loans", "Approval", "Avg amount", "Avg delinquencies", "Ever delinquent", "Avg tenure (days)"}}
	for _, r := range p.Summary {
		summary = append(summary, []string{
			strconv.Itoa(r.Risk),
			strconv.Itoa(r.Loans),
			percent(r.ApprovalRate),
			r.AvgAmount.Format(2),
			r.AvgDelinquencies.Format(2),
			percent(r.EverDelinquentRate),
			r.AvgTenureDays.Format(0),
		})
	}
	c.box("Risk profile", summary)

	seasons := pterm.TableData{{"Risk", "Season", "Loans", "Avg amount", "Avg delinquencies"}}
	for _, s := range p.Seasonality {
		seasons = append(seasons, []string{
			strconv.Itoa(s.Risk),
			s.Season,
			strconv.Itoa(s.Loans),
			s.AvgAmount.Format(2),
			s.AvgDelinquencies.Format(2),
		})
	}
	c.box("Seasonality", seasons)
}

// Models prints the evaluation table of every model.
func (c *Console) Models(reports []analytics.ModelReport) {
	for _, r := range reports {
		data := pterm.TableData{{"Split", "SMOTE", "Precision", "Recall", "F1", "Support", "AUC"}}
		for _, m := range r.Metrics {
			data = append(data, []string{m.Split, m.SMOTE, m.Precision, m.Recall, m.F1, m.Support, m.AUC})
		}
		c.box(r.Model+" - "+r.Description, data)
	}
}

func (c *Console) box(title string, data pterm.TableData) {
	table, err := pterm.DefaultTable.
		WithHasHeader().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	if err != nil {
		c.Error("render %s: %v", title, err)
		return
	}
	panel := pterm.DefaultBox.WithTitle(title).WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).Sprint(table)
	fmt.Fprintln(c.w, "\n"+panel)
}

func bar(v, max float64) string {
	if max <= 0 || v <= 0 {
		return ""
	}
	return strings.Repeat("█", int(math.Round(v/max*barWidth)))
}

// riskPct colors the percentage by severity.
func riskPct(s core.Stat) string {
	if !s.Defined() {
		return Muted("n/a")
	}
	v := s.Format(2) + "%"
	switch {
	case float64(s) >= 50:
		return Danger(v)
	case float64(s) >= 25:
		return Caution(v)
	default:
		return Good(v)
	}
}

func percent(s core.Stat) string {
	if !s.Defined() {
		return "n/a"
	}
	return kpi.Percent(float64(s))
}
