package service

import (
	"time"

	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/metrics"
	"github.com/atharvad999/adcreative/internal/providers/image"
	"github.com/atharvad999/adcreative/internal/providers/openai"
	"github.com/atharvad999/adcreative/internal/providers/prompt"
	"github.com/atharvad999/adcreative/internal/providers/shutterstock"
	"github.com/atharvad999/adcreative/internal/providers/upstream"
)

// FromConfig builds the upstream clients described by cfg and composes them
// into a Service. collector may be nil.
func FromConfig(cfg *infra.Config, logger *infra.Logger, collector *metrics.Collector) (*Service, error) {
	if logger == nil {
		logger = infra.NopLogger()
	}
	policy := func(timeout time.Duration) upstream.Policy {
		return upstream.Policy{Timeout: timeout, MaxRetries: cfg.MaxRetries, RetryDelay: cfg.RetryDelay}
	}

	stock, err := shutterstock.NewClient(shutterstock.Options{
		APIKey:  cfg.Credentials.ShutterstockKey,
		BaseURL: cfg.ShutterstockBaseURL,
		Sort:    cfg.ShutterstockSort,
		Logger:  logger,
		Metrics: collector,
		Policy:  policy(cfg.SearchTimeout),
	})
	if err != nil {
		return nil, err
	}

	oa, err := openai.NewClient(openai.Options{
		APIKey:       cfg.Credentials.OpenAIKey,
		Organization: cfg.Credentials.OpenAIOrgID,
		BaseURL:      cfg.OpenAIBaseURL,
		Logger:       logger,
		Metrics:      collector,
		ImagePolicy:  policy(cfg.GenerateTimeout),
		ChatPolicy:   policy(cfg.ReconstructTimeout),
	})
	if err != nil {
		return nil, err
	}

	generator, err := image.NewOpenAIGenerator(oa, image.OpenAIOptions{
		Model:       cfg.OpenAIImageModel,
		FetchPolicy: policy(cfg.SearchTimeout),
		Logger:      logger,
		Metrics:     collector,
	})
	if err != nil {
		return nil, err
	}

	reconstructor, err := prompt.NewOpenAIReconstructor(oa, prompt.OpenAIOptions{
		Model:  cfg.OpenAIVisionModel,
		Logger: logger,
		OnWarning: func(reason, detail string) {
			logger.Warn().Str("reason", reason).Str("detail", detail).Msg("vision model adjusted")
		},
	})
	if err != nil {
		return nil, err
	}

	return New(stock, generator, reconstructor, logger)
}
