package db

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/platform/config"
)

type seedType struct {
	name             string
	maxDays          float64
	requiresDoc      bool
	requiresApproval bool
}

var defaultLeaveTypes = []seedType{
	{name: "Annual Leave", maxDays: 21, requiresDoc: false, requiresApproval: true},
	{name: "Sick Leave", maxDays: 14, requiresDoc: true, requiresApproval: true},
	{name: "Emergency Leave", maxDays: 7, requiresDoc: false, requiresApproval: true},
}

// Seed inserts the default leave types and, when configured, a bootstrap
// admin account. It is safe to run on every startup.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	for _, lt := range defaultLeaveTypes {
		if _, err := pool.Exec(ctx, `
      INSERT INTO leave_types (name, max_days, requires_doc, requires_approval, active)
      VALUES ($1,$2,$3,$4,TRUE)
      ON CONFLICT (name) DO NOTHING
    `, lt.name, lt.maxDays, lt.requiresDoc, lt.requiresApproval); err != nil {
			return err
		}
	}

	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		slog.Info("seed admin skipped, credentials not configured")
		return nil
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO employees (email, password_hash, first_name, last_name, role, active)
    VALUES ($1,$2,'System','Admin',$3,TRUE)
    ON CONFLICT (email) DO NOTHING
  `, cfg.SeedAdminEmail, hash, auth.RoleAdmin)
	return err
}
