// Package database provides the GORM connection used by the estimate store.
//
// Connect supports three drivers: postgres (the primary deployment target,
// where the store adds its PostGIS geometry column), mysql, and sqlite
// (used by tests with an in-memory database). The connection is treated
// as optional by the start command: when it fails the service still runs,
// it just cannot persist estimates.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Warn("running without persistence", zap.Error(err))
//	}
package database
