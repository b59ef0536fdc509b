package http

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"

	"riskdash/internal/kpi"
	applog "riskdash/internal/log"
	"riskdash/internal/render"
	"riskdash/internal/services"
	"riskdash/web"
)

var pageTemplates = template.Must(template.ParseFS(web.TemplatesFS, "templates/*.html"))

type chartLink struct {
	Name string
	URL  string
}

type pageData struct {
	Dataset   string
	Year      string
	Options   []string
	Variant   string
	Range     string
	RangeHint string
	Records   int
	KPIs      *kpi.Panel
	Errors    map[string]string
	Charts    []chartLink
	ExportURL string
}

// handleIndex renders the dashboard page. Charts are loaded by the browser
// from /api/charts with the same query.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpValidate, err)
		return
	}
	opts, err := s.svc.Years(r.Context(), q.Dataset)
	if err != nil {
		writeError(w, r, applog.OpLoad, err)
		return
	}
	d, err := s.svc.Dashboard(r.Context(), q)
	if err != nil {
		writeError(w, r, applog.OpLoad, err)
		return
	}

	params := url.Values{}
	if q.Dataset != "" {
		params.Set("dataset", q.Dataset)
	}
	params.Set("year", q.Year.String())
	if q.AgeVariant != "" {
		params.Set("variant", q.AgeVariant)
	}
	data := pageData{
		Dataset: q.Dataset,
		Year:    q.Year.String(),
		Options: opts.Options,
		Variant: q.AgeVariant,
		Records: d.Records,
		KPIs:    d.KPIs,
		Errors:  d.Errors,
	}
	if data.Variant == "" {
		data.Variant = services.DefaultAgeVariant
	}
	if q.Range != nil {
		data.Range = q.Range.String()
		params.Set("range", data.Range)
	}
	if opts.Affiliation != nil {
		data.RangeHint = opts.Affiliation.String()
	}
	query := params.Encode()
	for _, name := range render.Names() {
		data.Charts = append(data.Charts, chartLink{Name: name, URL: "/api/charts/" + name + ".png?" + query})
	}
	data.ExportURL = "/api/export?" + query

	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		writeError(w, r, applog.OpRender, err)
		return
	}
	NewResponse().Body("text/html; charset=utf-8", buf.Bytes()).Write(w)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
