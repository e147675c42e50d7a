package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/atharvad999/adcreative/internal/http/handlers"
	"github.com/atharvad999/adcreative/internal/http/httpapi"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/infra/geoip"
	"github.com/atharvad999/adcreative/internal/metrics"
	"github.com/atharvad999/adcreative/internal/service"
)

// buildHandler constructs every client from cfg and returns the routed
// handler plus a cleanup func for resources that need closing.
func buildHandler(cfg *infra.Config, logger *infra.Logger) (http.Handler, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	svc, err := service.FromConfig(cfg, logger, collector)
	if err != nil {
		return nil, nil, err
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		// country detection falls back to headers only
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	router := httpapi.NewRouter(handlers.NewApp(svc, logger), httpapi.Options{
		Logger:         *logger,
		Metrics:        collector,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  resolver.Lookup(),
	})
	cleanup := func() {
		if err := resolver.Close(); err != nil {
			logger.Warn().Err(err).Msg("geoip close failed")
		}
	}
	return router, cleanup, nil
}
