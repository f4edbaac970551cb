package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
)

type BundleStorage interface {
	Scan(ctx context.Context) ([]*entity.Bundle, error)
}

type catalogService struct {
	store BundleStorage
	cfg   *config.AssetsConfig
	log   *slog.Logger
}

func NewCatalogService(store BundleStorage, cfg *config.AssetsConfig, log *slog.Logger) *catalogService {
	return &catalogService{
		store: store,
		cfg:   cfg,
		log:   log.With(slog.String("service", "catalog")),
	}
}

// Aggregate scans the bundle tree and folds every bundle through validation
// and normalization, collecting all problems instead of stopping at the
// first. It never writes; gating on the error count is the caller's job, so
// the operator always gets the complete report.
func (s *catalogService) Aggregate(ctx context.Context) (*entity.Aggregation, error) {
	found, err := s.store.Scan(ctx)
	if err != nil {
		s.log.Error("Cannot scan bundle tree", slog.Any("error", err))

		return nil, fmt.Errorf("cannot scan bundle tree: %w", err)
	}

	agg := &entity.Aggregation{}
	for _, bundle := range found {
		agg.Counts.Total++

		errs, warns := Validate(bundle)
		if len(errs) > 0 {
			agg.Counts.Errors++
			agg.Reports = append(agg.Reports, entity.BundleReport{Path: bundle.Path, Errors: errs, Warnings: warns})
			s.log.Error("Bundle failed validation", slog.String("path", bundle.Path), slog.Int("errors", len(errs)))

			continue
		}

		if len(warns) > 0 {
			agg.Reports = append(agg.Reports, entity.BundleReport{Path: bundle.Path, Warnings: warns})
		}

		agg.Valid = append(agg.Valid, entity.ValidBundle{Record: Normalize(bundle, s.cfg), Bundle: bundle})
		agg.Counts.Valid++
	}

	// Catalog order is case-insensitive by name; the id breaks ties so the
	// order never depends on scan order.
	sort.SliceStable(agg.Valid, func(i, j int) bool {
		ni := strings.ToLower(agg.Valid[i].Record.Name)
		nj := strings.ToLower(agg.Valid[j].Record.Name)
		if ni != nj {
			return ni < nj
		}

		return agg.Valid[i].Record.AppID < agg.Valid[j].Record.AppID
	})

	s.log.Info("Aggregation complete",
		slog.Int("total", agg.Counts.Total),
		slog.Int("valid", agg.Counts.Valid),
		slog.Int("errors", agg.Counts.Errors))

	return agg, nil
}
