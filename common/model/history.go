package model

import "time"

// ScrapeHistory is one per-tracker scrape observation, appended to MySQL
// when a history DSN is configured.
type ScrapeHistory struct {
	ID         uint      `gorm:"primaryKey"`
	InfoHash   string    `gorm:"size:40;index"`
	TrackerURL string    `gorm:"size:512"`
	Seeders    int       `gorm:""`
	Leechers   int       `gorm:""`
	Completed  int       `gorm:""`
	ScrapedAt  time.Time `gorm:"index"`
}

func (ScrapeHistory) TableName() string {
	return "scrape_history"
}
