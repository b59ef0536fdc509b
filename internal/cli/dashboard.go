package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"riskdash/internal/analytics"
	"riskdash/internal/backend"
	"riskdash/internal/config"
	"riskdash/internal/dataset/memory"
	applog "riskdash/internal/log"
	"riskdash/internal/render"
	"riskdash/internal/services"
	"riskdash/internal/style"
)

// Dashboard bundles the collaborators built from the configuration that
// both the server and riskctl need.
type Dashboard struct {
	Service  *services.DashboardService
	Renderer *render.Renderer
	Backend  backend.Config

	source *backend.Result
}

// BuildDashboard opens the configured source and wires the dashboard
// service and chart renderer. uploads may be nil.
func BuildDashboard(ctx context.Context, cfg *config.Config, logger *applog.Logger, uploads *memory.Store) (*Dashboard, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateSource(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s source: %w", bcfg.Type, err)
	}

	theme, err := style.Load(cfg.StylePath)
	if err != nil {
		res.Close()
		return nil, err
	}

	var kpis services.KPISource
	if cfg.KPIPath != "" {
		if _, err := os.Stat(cfg.KPIPath); err == nil {
			kpis = services.KPIFile{Path: cfg.KPIPath}
		} else {
			logger.Warn("KPI document not found, KPI panel disabled", "path", cfg.KPIPath)
		}
	}

	precedence := analytics.PreferStored
	if cfg.AgePreferDerived {
		precedence = analytics.PreferDerived
	}

	svc := services.NewDashboardService(
		services.NewSourceResolver(res.Source, uploads),
		kpis,
		services.WithAgePrecedence(precedence),
		services.WithLogger(logger.WithComponent(applog.ComponentService)),
	)
	return &Dashboard{
		Service:  svc,
		Renderer: render.New(theme),
		Backend:  bcfg,
		source:   res,
	}, nil
}

// Close releases the dataset source.
func (d *Dashboard) Close() error {
	if d == nil {
		return nil
	}
	return d.source.Close()
}

// ErrImportsDisabled is returned when no AMQP URL is configured.
var ErrImportsDisabled = errors.New("imports are disabled: AMQP_URL is not set")
