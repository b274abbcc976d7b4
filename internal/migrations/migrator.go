package migrations

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	ID        string // Unique identifier (e.g., "001_add_chat_foreign_keys")
	Name      string // Human-readable name
	Up        func(db *gorm.DB) error
	DependsOn []string // IDs of migrations this depends on
}

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(100)"`
	Name      string    `gorm:"type:varchar(255)"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the table name
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// Migrator handles database migrations
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
	log        zerolog.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *gorm.DB, log zerolog.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: GetMigrations(),
		log:        log,
	}
}

// Run executes all pending migrations and returns how many were applied.
func (m *Migrator) Run() (int, error) {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []MigrationRecord
	if err := m.db.Find(&applied).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, r := range applied {
		appliedMap[r.ID] = true
	}

	count := 0
	for _, migration := range m.migrations {
		if appliedMap[migration.ID] {
			continue
		}

		for _, dep := range migration.DependsOn {
			if !appliedMap[dep] {
				return count, fmt.Errorf("migration %s depends on %s which is not applied", migration.ID, dep)
			}
		}

		m.log.Info().Str("migration", migration.ID).Str("name", migration.Name).Msg("Running migration")

		if err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{
				ID:   migration.ID,
				Name: migration.Name,
			}).Error
		}); err != nil {
			m.log.Error().Err(err).Str("migration", migration.ID).Msg("Migration failed")
			return count, fmt.Errorf("migration %s failed: %w", migration.ID, err)
		}

		appliedMap[migration.ID] = true
		count++
	}

	return count, nil
}

// GetMigrations returns all registered migrations in order
func GetMigrations() []Migration {
	return []Migration{
		Migration001AddChatForeignKeys(),
		Migration002AddChatIndexes(),
	}
}
