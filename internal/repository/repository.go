package repository

import (
	"context"

	"keiba/internal/models"
)

type ListRacesParams struct {
	Venue   string
	Surface string
	Limit   int
	Offset  int
}

// Repository is the persistence boundary for collected races. UpsertRace is
// replace-or-insert by primary key: the stored record, entries included, is
// rewritten in full on every call.
type Repository interface {
	UpsertRace(ctx context.Context, race *models.Race) error
	GetRace(ctx context.Context, id string) (*models.Race, error)
	ListRaces(ctx context.Context, params ListRacesParams) ([]models.Race, error)
	CountRaces(ctx context.Context, params ListRacesParams) (int64, error)
}
