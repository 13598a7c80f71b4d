package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-quake-map/internal/models"
)

type Filter struct {
	Limit        int
	Offset       int
	Since        *time.Time
	MinMagnitude *float64
}

type EarthquakeRepository interface {
	// Add stores e if its ID is new and reports whether it did.
	Add(ctx context.Context, e *models.Earthquake) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Earthquake, error)
	ListEarthquakes(ctx context.Context, opts Filter) ([]models.Earthquake, error)
}
