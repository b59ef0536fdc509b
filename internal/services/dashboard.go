package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"riskdash/internal/analytics"
	"riskdash/internal/core"
	"riskdash/internal/dataset"
	"riskdash/internal/filter"
	"riskdash/internal/kpi"
	applog "riskdash/internal/log"
)

// Panel names, also used as keys of Dashboard.Errors.
const (
	PanelMonthly = "monthly"
	PanelRisk    = "risk"
	PanelAge     = "age"
	PanelKPIs    = "kpis"
)

// DefaultAgeVariant is used when a query names none.
const DefaultAgeVariant = "affiliation"

// ErrKPIUnavailable is returned when no KPI document is configured.
var ErrKPIUnavailable = errors.New("kpi document unavailable")

// Query selects the dataset and the parameters of every panel.
type Query struct {
	Dataset     string // upload id, empty for the configured source
	Year        filter.Selector
	Range       *filter.Range // age panel year range
	AmountField string
	FlagField   string
	AgeVariant  string
}

// Dashboard is the assembled set of panels. A panel that failed is nil and
// its error message is in Errors.
type Dashboard struct {
	Dataset     string              `json:"dataset"`
	Year        string              `json:"year"`
	Records     int                 `json:"records"`
	Monthly     *core.MonthlySeries `json:"monthly,omitempty"`
	Risk        *core.RiskSeries    `json:"risk,omitempty"`
	Age         *core.AgeSeries     `json:"age,omitempty"`
	KPIs        *kpi.Panel          `json:"kpis,omitempty"`
	Errors      map[string]string   `json:"errors,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// YearOptions feeds the year selector and the affiliation range slider.
type YearOptions struct {
	Years       []int         `json:"years"`
	Options     []string      `json:"options"`
	Affiliation *filter.Range `json:"affiliation,omitempty"`
}

// KPISource loads the KPI document.
type KPISource interface {
	Load(ctx context.Context) (kpi.Document, error)
}

// KPIFile reads the KPI document from disk on every call.
type KPIFile struct {
	Path string
}

func (f KPIFile) Load(ctx context.Context) (kpi.Document, error) {
	if err := ctx.Err(); err != nil {
		return kpi.Document{}, err
	}
	return kpi.Load(f.Path)
}

// DashboardService resolves a dataset, applies filters and runs the
// aggregators. Aggregation is synchronous over an immutable table.
type DashboardService struct {
	resolver   dataset.Resolver
	kpis       KPISource
	precedence analytics.AgePrecedence
	now        func() time.Time
	log        *applog.StructuredLogger
}

type Option func(*DashboardService)

func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

// WithAgePrecedence sets how the affiliation variant resolves account ages.
func WithAgePrecedence(p analytics.AgePrecedence) Option {
	return func(s *DashboardService) { s.precedence = p }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *DashboardService) { s.log = applog.NewStructuredLogger(l) }
}

// NewDashboardService builds the service. kpis may be nil.
func NewDashboardService(resolver dataset.Resolver, kpis KPISource, opts ...Option) *DashboardService {
	s := &DashboardService{
		resolver:   resolver,
		kpis:       kpis,
		precedence: analytics.PreferStored,
		now:        time.Now,
		log:        applog.NewStructuredLogger(applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentService)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dashboard loads the table and the KPI document concurrently, then builds
// every panel. Only a failure to load the table fails the whole call.
func (s *DashboardService) Dashboard(ctx context.Context, q Query) (Dashboard, error) {
	var (
		tbl    core.Table
		doc    kpi.Document
		kpiErr = ErrKPIUnavailable
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tbl, err = s.resolver.Resolve(gctx, q.Dataset)
		return err
	})
	if s.kpis != nil {
		g.Go(func() error {
			doc, kpiErr = s.kpis.Load(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dataset: %w", err)
	}

	d := Dashboard{
		Dataset:     q.Dataset,
		Year:        q.Year.String(),
		GeneratedAt: s.now().UTC(),
		Errors:      map[string]string{},
	}
	filtered := filter.ByYear(tbl, q.Year)
	d.Records = filtered.Len()

	if m, err := analytics.MonthlyPanel(filtered, q.AmountField); err != nil {
		s.panelError(ctx, &d, PanelMonthly, err)
	} else {
		d.Monthly = &m
	}

	if r, err := analytics.RiskPanel(filtered, q.FlagField); err != nil {
		s.panelError(ctx, &d, PanelRisk, err)
	} else {
		d.Risk = &r
	}

	if a, err := s.agePanel(tbl, q); err != nil {
		s.panelError(ctx, &d, PanelAge, err)
	} else {
		d.Age = &a
	}

	if kpiErr != nil {
		s.panelError(ctx, &d, PanelKPIs, kpiErr)
	} else {
		p := doc.Panel()
		d.KPIs = &p
	}

	if len(d.Errors) == 0 {
		d.Errors = nil
	}
	return d, nil
}

func (s *DashboardService) panelError(ctx context.Context, d *Dashboard, panel string, err error) {
	d.Errors[panel] = err.Error()
	s.log.LogPanelError(ctx, panel, err)
}

// Monthly returns the monthly totals panel for the selected year.
func (s *DashboardService) Monthly(ctx context.Context, q Query) (core.MonthlySeries, error) {
	tbl, err := s.resolver.Resolve(ctx, q.Dataset)
	if err != nil {
		return core.MonthlySeries{}, err
	}
	return analytics.MonthlyPanel(filter.ByYear(tbl, q.Year), q.AmountField)
}

// Risk returns the monthly risk-rate panel for the selected year.
func (s *DashboardService) Risk(ctx context.Context, q Query) (core.RiskSeries, error) {
	tbl, err := s.resolver.Resolve(ctx, q.Dataset)
	if err != nil {
		return core.RiskSeries{}, err
	}
	return analytics.RiskPanel(filter.ByYear(tbl, q.Year), q.FlagField)
}

// Age returns the account-age panel; the year range applies on the
// variant's own basis.
func (s *DashboardService) Age(ctx context.Context, q Query) (core.AgeSeries, error) {
	tbl, err := s.resolver.Resolve(ctx, q.Dataset)
	if err != nil {
		return core.AgeSeries{}, err
	}
	return s.agePanel(tbl, q)
}

func (s *DashboardService) agePanel(tbl core.Table, q Query) (core.AgeSeries, error) {
	v, err := s.ageVariant(q.AgeVariant)
	if err != nil {
		return core.AgeSeries{}, err
	}
	return analytics.AgePanel(tbl, v, q.Range, s.now())
}

func (s *DashboardService) ageVariant(name string) (analytics.AgeVariant, error) {
	if name == "" {
		name = DefaultAgeVariant
	}
	v, err := analytics.GetAgeVariant(name)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(analytics.AffiliationYearVariant); ok {
		return analytics.AffiliationYearVariant{Precedence: s.precedence}, nil
	}
	return v, nil
}

// Profile builds the risk profile page for the whole dataset.
func (s *DashboardService) Profile(ctx context.Context, datasetID string, f analytics.ProfileFilter) (analytics.Profile, analytics.ProfileOptions, error) {
	tbl, err := s.resolver.Resolve(ctx, datasetID)
	if err != nil {
		return analytics.Profile{}, analytics.ProfileOptions{}, err
	}
	p, err := analytics.BuildProfile(tbl, f, s.now())
	if err != nil {
		return analytics.Profile{}, analytics.ProfileOptions{}, err
	}
	return p, analytics.Options(tbl), nil
}

// Years lists the selectable years, "All" first, and the affiliation bounds.
func (s *DashboardService) Years(ctx context.Context, datasetID string) (YearOptions, error) {
	tbl, err := s.resolver.Resolve(ctx, datasetID)
	if err != nil {
		return YearOptions{}, err
	}
	years := filter.Years(tbl)
	opts := YearOptions{Years: years, Options: make([]string, 0, len(years)+1)}
	opts.Options = append(opts.Options, filter.All().String())
	for _, y := range years {
		opts.Options = append(opts.Options, filter.Year(y).String())
	}
	if b, ok := filter.AffiliationBounds(tbl); ok {
		opts.Affiliation = &b
	}
	return opts, nil
}

// KPIs returns the formatted KPI panel.
func (s *DashboardService) KPIs(ctx context.Context) (kpi.Panel, error) {
	if s.kpis == nil {
		return kpi.Panel{}, ErrKPIUnavailable
	}
	doc, err := s.kpis.Load(ctx)
	if err != nil {
		return kpi.Panel{}, err
	}
	return doc.Panel(), nil
}

// Table returns the year-filtered table, for exports.
func (s *DashboardService) Table(ctx context.Context, datasetID string, year filter.Selector) (core.Table, error) {
	tbl, err := s.resolver.Resolve(ctx, datasetID)
	if err != nil {
		return core.Table{}, err
	}
	return filter.ByYear(tbl, year), nil
}

// Models returns the static model evaluation reports.
func (s *DashboardService) Models() []analytics.ModelReport {
	return analytics.ModelReports()
}
