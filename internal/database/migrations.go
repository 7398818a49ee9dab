package database

import (
	"errors"
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrations is the ordered schema change log. Entries are applied
// cumulatively and never edited once released; new changes append.
var migrations = []*gormigrate.Migration{
	{
		ID: "202507011200_create_resumes",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&Resume{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("resumes")
		},
	},
	{
		ID: "202507011210_create_resume_educations",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&ResumeEducation{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("resume_educations")
		},
	},
	{
		ID: "202508021430_lowercase_statuses",
		Migrate: func(tx *gorm.DB) error {
			// Early rows were written with mixed-case statuses.
			return tx.Exec("UPDATE resumes SET status = LOWER(status)").Error
		},
		Rollback: func(tx *gorm.DB) error {
			return nil
		},
	},
}

func migrator(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrations)
}

// Migrate applies all pending migrations in order.
func Migrate(db *gorm.DB) error {
	if err := migrator(db).Migrate(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// RollbackLast undoes the most recently applied migration.
func RollbackLast(db *gorm.DB) error {
	if err := migrator(db).RollbackLast(); err != nil {
		return fmt.Errorf("rollback last migration: %w", err)
	}
	return nil
}

// RollbackAll unwinds the whole migration log, newest first.
func RollbackAll(db *gorm.DB) error {
	m := migrator(db)
	for {
		err := m.RollbackLast()
		if errors.Is(err, gormigrate.ErrNoRunMigration) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("rollback migrations: %w", err)
		}
	}
}
