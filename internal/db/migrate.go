package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

// The babel schema must exist before gorm auto-migrates into it, and
// the partial indexes gorm cannot express are created afterwards.

//go:embed sql/pre_automigrate.sql
var preAutoMigrateSQL string

//go:embed sql/post_automigrate.sql
var postAutoMigrateSQL string

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := p.runMigrationScript(ctx, "pre-auto-migrate", preAutoMigrateSQL); err != nil {
		return err
	}

	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}

	return p.runMigrationScript(ctx, "post-auto-migrate", postAutoMigrateSQL)
}

// runMigrationScript executes each semicolon-terminated statement in
// the script on its own, so a multi-statement script does not rely on
// the driver accepting batched queries.
func (p *Pool) runMigrationScript(ctx context.Context, label, script string) error {
	for _, statement := range strings.Split(script, ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		if err := p.gdb.WithContext(ctx).Exec(statement).Error; err != nil {
			return fmt.Errorf("execute %s SQL: %w", label, err)
		}
	}
	return nil
}
