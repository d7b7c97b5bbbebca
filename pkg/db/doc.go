// Package db connects to PostgreSQL through pgxpool and applies goose
// migrations.
//
// The pool is also exposed as a *sql.DB (Open) for code written against
// database/sql, such as the template store.
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	sqlDB := db.Open(pool)
//	if err := db.Migrate(ctx, sqlDB, store.Migrations, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
package db
