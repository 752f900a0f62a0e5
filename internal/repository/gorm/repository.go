package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keiba/internal/models"
	"keiba/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertRace replaces the stored record in full. Old entries are deleted
// before the new set is inserted so nothing carries over between collection
// runs of the same identifier.
func (s *Store) UpsertRace(ctx context.Context, race *models.Race) error {
	if s == nil || s.db == nil || race == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("race_id = ?", race.ID).Delete(&models.Entry{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Entries").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(race).Error; err != nil {
			return err
		}
		if len(race.Entries) == 0 {
			return nil
		}
		for i := range race.Entries {
			race.Entries[i].ID = 0
			race.Entries[i].RaceID = race.ID
		}
		return tx.Create(&race.Entries).Error
	})
}

func (s *Store) GetRace(ctx context.Context, id string) (*models.Race, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var race models.Race
	err := s.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&race, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &race, nil
}

func (s *Store) ListRaces(ctx context.Context, params repository.ListRacesParams) ([]models.Race, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyFilters(ctx, params)
	limit := params.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var races []models.Race
	err := query.
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("scheduled_at DESC").
		Limit(limit).Offset(offset).
		Find(&races).Error
	if err != nil {
		return nil, err
	}
	return races, nil
}

func (s *Store) CountRaces(ctx context.Context, params repository.ListRacesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.applyFilters(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) applyFilters(ctx context.Context, params repository.ListRacesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Race{})
	if v := strings.TrimSpace(params.Venue); v != "" {
		query = query.Where("venue = ?", v)
	}
	if v := strings.TrimSpace(params.Surface); v != "" {
		query = query.Where("track_surface = ?", v)
	}
	return query
}
