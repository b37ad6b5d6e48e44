package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/config"
	openaiTransport "github.com/kailas-cloud/rescuedex/internal/transport/openai"
	"github.com/kailas-cloud/rescuedex/internal/usecase/classify"
	searchuc "github.com/kailas-cloud/rescuedex/internal/usecase/search"
)

// BuildClassifier returns the rule classifier or the delegate classifier backed by a chat model.
// The delegate falls back to a hybrid analysis on its own, so no rules chain is needed.
func BuildClassifier(cfg config.ClassifierConfig, logger *zap.Logger) searchuc.Classifier {
	if cfg.Driver != config.ClassifierLLM {
		return classify.NewRuleClassifier()
	}
	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		Config: openaiTransport.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: "openai",
			Logger:   logger,
		},
		Temperature: cfg.Temperature,
	})
	return classify.NewDelegateClassifier(completer, time.Duration(cfg.TimeoutSec)*time.Second, logger)
}
