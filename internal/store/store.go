// Package store provides persistence for defect assessments.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// ErrUnavailable is returned by a store that is not configured.
var ErrUnavailable = errors.New("assessment store unavailable")

// Repository defines the interface for reading and writing assessments.
type Repository interface {
	// LookupLatestRatings returns the ratings of the most recent assessment.
	// It returns an empty slice when the user has no assessment for the virtue.
	LookupLatestRatings(ctx context.Context, userID, virtueID string) ([]domain.DefectRating, error)

	// LatestAssessment returns the most recent assessment, or nil if none exists.
	LatestAssessment(ctx context.Context, userID, virtueID string) (*domain.Assessment, error)

	// SaveAssessment stores a new assessment and sets its ID.
	SaveAssessment(ctx context.Context, a *domain.Assessment) error

	// PruneAssessments keeps the newest keep assessments per user and virtue
	// and deletes the rest, returning the number deleted.
	PruneAssessments(ctx context.Context, keep int) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Disabled is a Repository that is never available.
type Disabled struct{}

var _ Repository = Disabled{}

func (Disabled) LookupLatestRatings(context.Context, string, string) ([]domain.DefectRating, error) {
	return nil, ErrUnavailable
}

func (Disabled) LatestAssessment(context.Context, string, string) (*domain.Assessment, error) {
	return nil, ErrUnavailable
}

func (Disabled) SaveAssessment(context.Context, *domain.Assessment) error { return ErrUnavailable }

func (Disabled) PruneAssessments(context.Context, int) (int64, error) { return 0, ErrUnavailable }

func (Disabled) Ping(context.Context) error { return ErrUnavailable }

func (Disabled) Close() error { return nil }
