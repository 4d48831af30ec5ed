package salesdata

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("sales record not found")
	ErrDuplicateEntry = errors.New("a sales record already exists for this team and date")
)

// Repository is the permanent store for committed sales records. One record
// per (team, business date); Save with replace=false fails on a duplicate,
// replace=true overwrites the existing row in place.
type Repository interface {
	FindByTeamAndDate(ctx context.Context, teamID string, date time.Time) (*SalesData, error)
	Save(ctx context.Context, rec *SalesData, replace bool) (*SalesData, error)
	Delete(ctx context.Context, id string) error
}
