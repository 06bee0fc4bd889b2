package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"geofuse/feature/geolocate/fusion"
	"geofuse/feature/geolocate/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"gorm.io/gorm"
)

// Row is one persisted estimate. The table is append-only: every fusion
// invocation for an entity adds a row, later estimates never update
// earlier ones, so the full audit trail of what the platform believed
// and when survives.
type Row struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string    `gorm:"size:64;index:idx_geo_estimates_entity,priority:1" json:"entity_type"`
	EntityID   string    `gorm:"size:128;index:idx_geo_estimates_entity,priority:2" json:"entity_id"`
	TS         time.Time `gorm:"index" json:"ts"`
	Method     string    `gorm:"size:32" json:"method"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	RadiusM    float64   `json:"radius_m"`
	LowConf    bool      `gorm:"column:low_confidence" json:"low_confidence"`
	// Signals is the raw contributing signal set, serialized JSON.
	Signals string `gorm:"type:text" json:"signals"`
	// Geom is the WKT point for the estimate. On Postgres a generated
	// geography column is derived from it (see Migrate).
	Geom string `gorm:"type:text" json:"geom"`
	// Cell is the geohash spatial-index cell, computed at write time.
	Cell string `gorm:"size:12;index" json:"cell"`
}

// TableName fixes the table name independent of GORM pluralization.
func (Row) TableName() string { return "geo_estimates" }

// Store appends estimates to the spatial store.
type Store struct {
	db        *gorm.DB
	precision int
}

// New creates a store writing geohash cells at the given precision.
func New(db *gorm.DB, precision int) *Store {
	if precision <= 0 || precision > 12 {
		precision = fusion.DefaultCellPrecision
	}
	return &Store{db: db, precision: precision}
}

// Migrate creates the table and indexes. On Postgres it additionally
// derives a PostGIS geography column from the WKT and indexes it with
// GiST, which is what makes ST_DWithin range queries over the corpus
// fast. Other drivers keep the plain columns; the geohash cell index
// still serves coarse proximity lookups there.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&Row{}); err != nil {
		return fmt.Errorf("migrate geo_estimates: %w", err)
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	stmts := []string{
		`ALTER TABLE geo_estimates ADD COLUMN IF NOT EXISTS geog geography(Point,4326)
			GENERATED ALWAYS AS (ST_GeogFromText(geom)) STORED`,
		`CREATE INDEX IF NOT EXISTS idx_geo_estimates_geog ON geo_estimates USING GIST (geog)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate geo_estimates geometry: %w", err)
		}
	}
	return nil
}

// Save appends one row for the estimate and returns its generated id.
// There is no retry here: a failed write surfaces to the caller, and
// resubmitting the identical estimate is safe because nothing is ever
// updated in place.
func (s *Store) Save(ctx context.Context, entityType, entityID string, est *models.Estimate) (uint64, error) {
	if est == nil {
		return 0, fmt.Errorf("nil estimate")
	}

	signals, err := json.Marshal(est.Signals)
	if err != nil {
		return 0, fmt.Errorf("marshal signals: %w", err)
	}

	row := Row{
		EntityType: entityType,
		EntityID:   entityID,
		TS:         time.Now().UTC(),
		Method:     est.Method,
		Lat:        est.Lat,
		Lon:        est.Lon,
		RadiusM:    est.RadiusM,
		LowConf:    est.LowConfidence,
		Signals:    string(signals),
		Geom:       wkt.MarshalString(orb.Point{est.Lon, est.Lat}),
		Cell:       fusion.CellID(est.Lat, est.Lon, s.precision),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("save estimate for %s/%s: %w", entityType, entityID, err)
	}
	return row.ID, nil
}

// History returns the most recent rows for an entity, newest first.
func (s *Store) History(ctx context.Context, entityType, entityID string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []Row
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history for %s/%s: %w", entityType, entityID, err)
	}
	return rows, nil
}

// Ping verifies the underlying connection, for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
