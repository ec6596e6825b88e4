// Package pg holds the PostgreSQL side of tenantgate, built on pgx/v5.
//
// Registry implements tenant.Registry over the control-plane tables created
// by Migrate (tenants, orgs, tenant_domains, tenant_database_configs). The
// schema ships embedded and is applied with goose.
//
// Factory implements connpool.Factory. Each handle is a *TenantDB: a pgx
// pool sized to the configured width whose connections start with
// search_path set to the org schema, so queries need no schema prefix.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//	registry := pg.NewRegistry(pool)
//
// Inside a request served by tenant.Middleware:
//
//	db, err := pg.DBFromContext(r.Context())
//	rows, err := db.Query(ctx, "SELECT id, title FROM projects")
//
// Healthcheck returns a probe suitable for httpserver health endpoints.
package pg
