// Package mongo provides a MongoDB-backed tenant.Registry.
//
// Tenants live in the "tenants" collection with their verified domains
// embedded, orgs in "orgs" and encrypted credentials in "tenant_db_configs".
// Identifiers are stored as canonical UUID strings.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := mongo.EnsureIndexes(ctx, db); err != nil {
//		return err
//	}
//	registry := mongo.NewDatabaseRegistry(db)
//
// Tests and alternative stores can supply their own Finder to NewRegistry.
package mongo
