package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTable is the table translations are read from unless configured otherwise.
const DefaultTable = "translations"

// Translation is one localized value. Locale holds the canonical BCP 47 form
// of the tag, e.g. "sw-KE"; Namespace holds the owner.
type Translation struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Namespace    string `gorm:"type:varchar(255);not null;uniqueIndex:idx_translation_lookup,priority:1"`
	BaseName     string `gorm:"type:varchar(255);not null;uniqueIndex:idx_translation_lookup,priority:2"`
	Locale       string `gorm:"type:varchar(35);not null;uniqueIndex:idx_translation_lookup,priority:3"`
	MessageKey   string `gorm:"type:varchar(255);not null;uniqueIndex:idx_translation_lookup,priority:4"`
	MessageValue string `gorm:"type:text;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Translation) TableName() string {
	return DefaultTable
}

func tableOrDefault(table string) string {
	if table == "" {
		return DefaultTable
	}
	return table
}

// Migrate creates or updates the translations table.
func Migrate(ctx context.Context, db *gorm.DB, table string) error {
	err := db.WithContext(ctx).Table(tableOrDefault(table)).AutoMigrate(&Translation{})
	if err != nil {
		return SQLException.Wrap(err, err.Error())
	}
	return nil
}

// Save inserts translations, replacing the value of rows that already exist.
func Save(ctx context.Context, db *gorm.DB, table string, translations ...*Translation) error {
	if len(translations) == 0 {
		return nil
	}

	result := db.WithContext(ctx).Table(tableOrDefault(table)).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "namespace"}, {Name: "base_name"}, {Name: "locale"}, {Name: "message_key"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"message_value", "updated_at"}),
	}).Create(translations)
	if result.Error != nil {
		return SQLException.Wrap(result.Error, result.Error.Error())
	}
	return nil
}

// load reads every translation of namespace/baseName stored under one of locales.
func load(
	ctx context.Context,
	db *gorm.DB,
	table, namespace, baseName string,
	locales []string,
) ([]Translation, error) {
	var rows []Translation
	result := db.WithContext(ctx).Table(tableOrDefault(table)).
		Where("namespace = ? AND base_name = ? AND locale IN ?", namespace, baseName, locales).
		Order("locale, message_key").
		Find(&rows)
	if result.Error != nil {
		return nil, SQLException.Wrap(result.Error, result.Error.Error())
	}
	return rows, nil
}
