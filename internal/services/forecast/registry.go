package forecast

import (
	"StockCast/internal/domain/service"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
)

// Registry holds the model backends enabled by configuration. Unknown
// backend names are logged and skipped; an adapter that later fails to
// train is likewise excluded from the ensemble rather than blocking
// the others.
type Registry struct {
	Adapters []service.ModelAdapter
	Native   []service.NativeForecaster
}

// NewRegistry populates the registry from the configured model list.
func NewRegistry(cfg config.ForecastConfig, l *applogger.Logger) *Registry {
	r := &Registry{}
	for _, name := range cfg.Models {
		switch name {
		case "gradient":
			r.Adapters = append(r.Adapters, NewGradientAdapter(cfg.Seed))
		case "forest":
			r.Adapters = append(r.Adapters, NewForestAdapter(cfg.Seed))
		case "seasonal":
			r.Native = append(r.Native, NewSeasonalAdapter())
		default:
			if l != nil {
				l.Warn("unknown model backend, skipping", applogger.String("model", name))
			}
		}
	}
	return r
}

// Names lists every registered backend.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Adapters)+len(r.Native))
	for _, a := range r.Adapters {
		names = append(names, a.Name())
	}
	for _, n := range r.Native {
		names = append(names, n.Name())
	}
	return names
}

// Empty reports whether no backend is available.
func (r *Registry) Empty() bool {
	return len(r.Adapters) == 0 && len(r.Native) == 0
}
