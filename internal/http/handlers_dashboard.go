package http

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"riskdash/internal/analytics"
	"riskdash/internal/export"
	applog "riskdash/internal/log"
	"riskdash/internal/render"
	"riskdash/internal/services"
)

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	opts, err := s.svc.Years(r.Context(), strings.TrimSpace(r.URL.Query().Get("dataset")))
	if err != nil {
		writeError(w, r, applog.OpLoad, err)
		return
	}
	writeJSON(w, opts)
}

// handleDashboard returns every panel; failed panels are listed in errors.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	d, err := s.svc.Dashboard(r.Context(), q)
	if err != nil {
		writeError(w, r, applog.OpLoad, err)
		return
	}
	writeJSON(w, d)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	series, err := s.svc.Monthly(r.Context(), q)
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	writeJSON(w, series)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	series, err := s.svc.Risk(r.Context(), q)
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	writeJSON(w, series)
}

func (s *Server) handleAge(w http.ResponseWriter, r *http.Request) {
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	series, err := s.svc.Age(r.Context(), q)
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	writeJSON(w, series)
}

type profileResponse struct {
	Profile analytics.Profile        `json:"profile"`
	Options analytics.ProfileOptions `json:"options"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	f, err := ParseProfileFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	p, opts, err := s.svc.Profile(r.Context(), strings.TrimSpace(r.URL.Query().Get("dataset")), f)
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	writeJSON(w, profileResponse{Profile: p, Options: opts})
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.KPIs(r.Context())
	if err != nil {
		writeError(w, r, applog.OpLoad, err)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.Models())
}

// handleChart renders one chart as PNG. Images are cached per query.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")
	if !slices.Contains(render.Names(), name) {
		writeError(w, r, applog.OpRender, fmt.Errorf("%w: %q", render.ErrUnknownChart, name))
		return
	}
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}

	key := chartKey(name, q)
	if png, ok := s.charts.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.chartHits, 1)
		NewResponse().Body("image/png", png).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.chartMisses, 1)

	var panels render.Panels
	switch name {
	case render.ChartMonthly:
		m, err := s.svc.Monthly(r.Context(), q)
		if err != nil {
			writeError(w, r, applog.OpAggregate, err)
			return
		}
		panels.Monthly = &m
	case render.ChartRisk:
		rs, err := s.svc.Risk(r.Context(), q)
		if err != nil {
			writeError(w, r, applog.OpAggregate, err)
			return
		}
		panels.Risk = &rs
	case render.ChartAge:
		a, err := s.svc.Age(r.Context(), q)
		if err != nil {
			writeError(w, r, applog.OpAggregate, err)
			return
		}
		panels.Age = &a
	}

	png, err := s.renderer.PNG(name, panels)
	if err != nil {
		writeError(w, r, applog.OpRender, err)
		return
	}
	s.charts.Set(key, png)
	NewResponse().Body("image/png", png).Write(w)
}

func chartKey(name string, q services.Query) string {
	rng := ""
	if q.Range != nil {
		rng = q.Range.String()
	}
	return strings.Join([]string{name, q.Dataset, q.Year.String(), rng, q.AmountField, q.FlagField, q.AgeVariant}, "|")
}

// handleExport downloads the dashboard as csv, json or pdf (format param,
// json by default). The PDF embeds every chart.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			writeError(w, r, applog.OpValidate, err)
			return
		}
		format = f
	}
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	d, err := s.svc.Dashboard(r.Context(), q)
	if err != nil {
		writeError(w, r, applog.OpLoad, err)
		return
	}

	report := export.Report{Title: "Risk dashboard " + d.Year, Dashboard: d}
	if format == export.FormatPDF {
		report.Charts = make(map[string][]byte, len(render.Names()))
		panels := render.Panels{Monthly: d.Monthly, Risk: d.Risk, Age: d.Age}
		for _, name := range render.Names() {
			png, err := s.renderer.PNG(name, panels)
			if err != nil {
				writeError(w, r, applog.OpRender, err)
				return
			}
			report.Charts[name] = png
		}
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	NewResponse().
		Header("Content-Disposition", fmt.Sprintf(`attachment; filename="riskdash_%s.%s"`, strings.ToLower(d.Year), format)).
		Body(format.ContentType(), buf.Bytes()).
		Write(w)
}
