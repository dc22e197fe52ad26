package defect

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// CoverageClassifier judges coverage for a single defect.
type CoverageClassifier interface {
	Classify(ctx context.Context, progressText string, d domain.DefectPriority, priorPrompts []string) domain.CoverageState
}

// Selector picks the next defect to write about.
type Selector struct {
	classifier  CoverageClassifier
	parallelism int
	logger      *slog.Logger
}

// NewSelector creates a selector. With parallelism above one, every defect is
// classified up front using that many concurrent calls; otherwise defects are
// classified lazily in rank order and classification stops at the first
// defect needing work. Both modes yield the same selection.
func NewSelector(classifier CoverageClassifier, parallelism int, logger *slog.Logger) *Selector {
	if parallelism < 1 {
		parallelism = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{classifier: classifier, parallelism: parallelism, logger: logger}
}

// Select walks ranked in order and returns Focus for the first defect that is
// not fully addressed. Low-tier defects do not block completion when any
// significant defect exists. An empty ranking yields NoData.
func (s *Selector) Select(ctx context.Context, ranked []domain.DefectPriority, progressText string, priorPrompts []string) domain.Selection {
	if len(ranked) == 0 {
		return domain.NoData{}
	}

	coverageOf := s.lazy(ctx, ranked, progressText, priorPrompts)
	if s.parallelism > 1 && len(ranked) > 1 {
		coverageOf = s.prefetch(ctx, ranked, progressText, priorPrompts)
	}

	significant := SignificantCount(ranked)
	var addressed, significantAddressed []string
	for i, d := range ranked {
		cov := coverageOf(i)
		if cov.Status() == domain.FullyAddressed {
			addressed = append(addressed, d.Name)
			if d.Significant() {
				significantAddressed = append(significantAddressed, d.Name)
			}
			continue
		}
		if !d.Significant() && significant > 0 {
			break
		}
		s.logger.Debug("Selected focus defect",
			"defect", d.Name,
			"tier", d.Tier,
			"coverage", cov.Status(),
			"addressed_before", len(addressed))
		return domain.Focus{Defect: d, Coverage: cov, Addressed: addressed}
	}

	return domain.Complete{
		AddressedNames:       addressed,
		SignificantAddressed: significantAddressed,
		SignificantTotal:     significant,
		RankedTotal:          len(ranked),
	}
}

func (s *Selector) lazy(ctx context.Context, ranked []domain.DefectPriority, progressText string, priorPrompts []string) func(int) domain.CoverageState {
	return func(i int) domain.CoverageState {
		return s.classifier.Classify(ctx, progressText, ranked[i], priorPrompts)
	}
}

func (s *Selector) prefetch(ctx context.Context, ranked []domain.DefectPriority, progressText string, priorPrompts []string) func(int) domain.CoverageState {
	states := make([]domain.CoverageState, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range ranked {
		g.Go(func() error {
			states[i] = s.classifier.Classify(gctx, progressText, ranked[i], priorPrompts)
			return nil
		})
	}
	// Classification absorbs its own failures, so Wait never returns an error.
	_ = g.Wait()

	return func(i int) domain.CoverageState { return states[i] }
}
