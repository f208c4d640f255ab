// Package persistence provides the GORM-backed relational stores.
package persistence

import (
	"fmt"
	"strings"

	"github.com/helixml/scholar/internal/database"
	"gorm.io/gorm"
)

// AutoMigrate runs GORM auto migration for all models.
func AutoMigrate(db database.Database) error {
	return db.GORM().AutoMigrate(allModels()...)
}

// allModels returns every GORM model that AutoMigrate manages.
func allModels() []interface{} {
	return []interface{}{
		&AbstractModel{},
		&AuthorModel{},
		&CategoryModel{},
		&AbstractAuthorLinkModel{},
		&AbstractCategoryLinkModel{},
	}
}

// tableNames returns the managed tables, link tables first so row-by-row
// deletion never breaks referential integrity.
func tableNames() []string {
	return []string{
		AbstractAuthorLinkModel{}.TableName(),
		AbstractCategoryLinkModel{}.TableName(),
		AbstractModel{}.TableName(),
		AuthorModel{}.TableName(),
		CategoryModel{}.TableName(),
	}
}

// Reset deletes every row from all managed tables and resets id sequences
// where the dialect supports it.
func Reset(db database.Database) error {
	gdb := db.GORM()

	if db.IsPostgres() {
		stmt := "TRUNCATE TABLE " + strings.Join(tableNames(), ", ") + " RESTART IDENTITY CASCADE"
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("truncate tables: %w", err)
		}
		return nil
	}

	for _, table := range tableNames() {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear table %s: %w", table, err)
		}
	}
	return nil
}

// ValidateSchema verifies every GORM model field has a corresponding column
// in the database. Returns an error listing any missing columns.
func ValidateSchema(db database.Database) error {
	gdb := db.GORM()
	migrator := gdb.Migrator()

	var missing []string
	for _, model := range allModels() {
		stmt := &gorm.Statement{DB: gdb}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("parse model schema: %w", err)
		}

		columnTypes, err := migrator.ColumnTypes(model)
		if err != nil {
			return fmt.Errorf("get column types for %s: %w", stmt.Table, err)
		}

		actual := make(map[string]bool, len(columnTypes))
		for _, ct := range columnTypes {
			actual[ct.Name()] = true
		}

		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" || field.DBName == "-" {
				continue
			}
			if !actual[field.DBName] {
				missing = append(missing, stmt.Table+"."+field.DBName)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("schema validation failed, missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
