package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"shrike/internal/scrape"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// CompanyRecord is the archived form of an extracted provider entry. The
// full entry travels in Payload; the searchable columns are pulled out of
// it on insert.
type CompanyRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	RunID      string    `gorm:"size:36;uniqueIndex:idx_company_run_profile,priority:1"`
	PageNumber int       `gorm:"index"`
	Title      string    `gorm:"size:255;not null"`
	ProfileURL string    `gorm:"size:512;uniqueIndex:idx_company_run_profile,priority:2"`
	Location   string    `gorm:"size:255"`
	Country    string    `gorm:"size:56"`
	Payload    string    `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// ProxyOutcome records how one proxy fared over a whole run.
type ProxyOutcome struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	RunID              string `gorm:"size:36;index"`
	ProxyURL           string `gorm:"size:255;not null"`
	Alive              bool
	Failures           int
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	Country            string    `gorm:"size:56"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

// Archive stores run results in Postgres. It is optional; runs without a
// configured DSN never open it.
type Archive struct {
	db *gorm.DB
}

func OpenArchive(dsn string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: silentLogger()})
	if err != nil {
		return nil, fmt.Errorf("archive: open connection: %w", err)
	}

	if err := db.AutoMigrate(&CompanyRecord{}, &ProxyOutcome{}); err != nil {
		return nil, fmt.Errorf("archive: auto migrate: %w", err)
	}

	log.Info("archive database ready")
	return &Archive{db: db}, nil
}

func silentLogger() logger.Interface {
	return logger.New(
		log.Default(),
		logger.Config{LogLevel: logger.Silent},
	)
}

// SaveCompanies archives every entry of one page. Entries already stored
// for this run and profile URL are left untouched.
func (a *Archive) SaveCompanies(runID string, pageNumber int, companies []scrape.Company) error {
	if len(companies) == 0 {
		return nil
	}

	records := make([]CompanyRecord, 0, len(companies))
	for _, c := range companies {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("archive: encode company: %w", err)
		}
		records = append(records, CompanyRecord{
			RunID:      runID,
			PageNumber: pageNumber,
			Title:      c.Title,
			ProfileURL: c.ProfileURL,
			Location:   c.Location,
			Country:    c.Address.Country,
			Payload:    string(payload),
		})
	}

	return a.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

// SaveProxyOutcomes archives the per-proxy results of a finished run.
func (a *Archive) SaveProxyOutcomes(outcomes []ProxyOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	return a.db.Create(&outcomes).Error
}

func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
