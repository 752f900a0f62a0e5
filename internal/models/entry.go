package models

// Entry is one horse's participation in a race. Position preserves source
// table row order; Rank 0 marks a did-not-finish or void row. The odds and
// pedigree fields are filled by the auxiliary-page join and stay nil when
// those pages are unavailable.
type Entry struct {
	ID             uint64   `gorm:"primaryKey;autoIncrement" json:"-"`
	RaceID         string   `gorm:"type:text;index;not null" json:"-"`
	Position       int      `gorm:"not null" json:"position"`
	HorseID        *string  `gorm:"type:text" json:"horse_id,omitempty"`
	HorseName      string   `gorm:"type:text;not null;index" json:"horse_name"`
	Bracket        int      `json:"bracket"`
	HorseNumber    int      `json:"horse_number"`
	Rank           int      `json:"rank"`
	Sex            string   `gorm:"type:text" json:"sex"`
	Age            int      `json:"age"`
	BurdenWeight   float64  `json:"burden_weight"`
	BodyWeight     int      `json:"body_weight"`
	BodyWeightDiff int      `json:"body_weight_diff"`
	JockeyID       *string  `gorm:"type:text" json:"jockey_id,omitempty"`
	JockeyName     string   `gorm:"type:text" json:"jockey_name"`
	TrainerID      *string  `gorm:"type:text" json:"trainer_id,omitempty"`
	TrainerName    string   `gorm:"type:text" json:"trainer_name"`
	FinishTime     float64  `json:"finish_time_seconds"`
	WinOdds        float64  `json:"win_odds"`
	ShowOddsMin    *float64 `json:"show_odds_min,omitempty"`
	ShowOddsMax    *float64 `json:"show_odds_max,omitempty"`
	SireName       *string  `gorm:"type:text" json:"sire_name,omitempty"`
	DamName        *string  `gorm:"type:text" json:"dam_name,omitempty"`
	Prize          int64    `json:"prize"`
}

func (Entry) TableName() string {
	return "race_entries"
}
