package identity

import (
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/config"
	"github.com/padraicbc/riderapi/metrics"
	"github.com/padraicbc/riderapi/normalize"
)

// Setup builds a Resolver from application config. rec may be nil.
func Setup(db *bun.DB, cfg *config.Config, logger *zap.Logger, rec *metrics.Recorder) (*Resolver, error) {
	folds, err := normalize.ParseFolds(cfg.NameFolds)
	if err != nil {
		return nil, fmt.Errorf("NAME_FOLDS: %w", err)
	}
	norm := normalize.New(folds)
	logger.Info("identity engine configured",
		zap.Strings("folds", norm.Folds()),
		zap.Int("scan_limit", cfg.MatchScanLimit),
		zap.Int("club_designators", len(cfg.ClubDesignators)),
	)
	return NewResolver(db, Options{
		Normalizer: norm,
		Matcher: MatcherConfig{
			ScanLimit:       cfg.MatchScanLimit,
			ClubDesignators: cfg.ClubDesignators,
		},
		Logger:  logger,
		Metrics: rec,
	}), nil
}
