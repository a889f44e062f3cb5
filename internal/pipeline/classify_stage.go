package pipeline

import (
	"context"
	"log/slog"

	"github.com/tensorlakeai/mother-duck/constants"
	"github.com/tensorlakeai/mother-duck/internal/docai"
)

// Classifier submits filings for page classification.
type Classifier struct {
	logger  *slog.Logger
	client  docai.Client
	classes []docai.PageClassConfig
}

func NewClassifier(client docai.Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		logger: logger,
		client: client,
		classes: []docai.PageClassConfig{{
			Name:        constants.RiskFactorsPageClass,
			Description: constants.RiskFactorsPageDescription,
		}},
	}
}

// Classify starts a classification job for url and returns its parse id.
func (c *Classifier) Classify(ctx context.Context, url string) (string, error) {
	parseID, err := c.client.Classify(ctx, url, c.classes)
	if err != nil {
		c.logger.Error("classify failed", "url", url, "err", err)
		return "", err
	}
	c.logger.Debug("classify submitted", "url", url, "parse_id", parseID)
	return parseID, nil
}
