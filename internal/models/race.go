package models

import (
	"time"

	"gorm.io/datatypes"
)

// Race is one collected race. The ID is the 12-digit identifier taken from
// the detail page's canonical link, never from the request URL, so redirects
// cannot mislabel a record. Re-collection replaces the row and its entries
// wholesale.
type Race struct {
	ID            string                     `gorm:"primaryKey;type:text" json:"id"`
	Round         int                        `gorm:"not null" json:"round"`
	Title         string                     `gorm:"type:text;not null" json:"title"`
	Grade         *string                    `gorm:"type:text" json:"grade,omitempty"`
	TrackSurface  string                     `gorm:"type:text;index" json:"track_surface"`
	Distance      int                        `gorm:"not null" json:"distance"`
	Weather       string                     `gorm:"type:text" json:"weather"`
	Going         string                     `gorm:"type:text" json:"going"`
	Venue         string                     `gorm:"type:text;index" json:"venue"`
	ScheduledAt   time.Time                  `gorm:"type:timestamptz;index" json:"scheduled_at"`
	DateStr       string                     `gorm:"type:text" json:"date_str"`
	HeadCount     int                        `json:"head_count"`
	PurseSchedule datatypes.JSONSlice[int64] `gorm:"type:jsonb" json:"purse_schedule"`
	MaxPrize      int64                      `json:"max_prize"`
	CollectedAt   time.Time                  `gorm:"type:timestamptz;not null" json:"collected_at"`
	Entries       []Entry                    `gorm:"foreignKey:RaceID;references:ID;constraint:OnDelete:CASCADE" json:"entries"`
}

func (Race) TableName() string {
	return "races"
}
