package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/pipeline"
	"github.com/openfiscal/estoque-veiculos/pkg/database"
)

// Run summarizes one persisted processing run.
type Run struct {
	ID             int64     `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	CompanyIDs     []string  `json:"company_ids"`
	DocumentsTotal int       `json:"documents_total"`
	DocumentsFail  int       `json:"documents_failed"`
	RecordsTotal   int       `json:"records_total"`
	ValidationOK   bool      `json:"validation_ok"`
}

// RunRepository persists processing runs with their lifecycle records and
// audit alerts.
type RunRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRunRepository creates a run repository.
func NewRunRepository(db *database.DB, logger *zap.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// SaveRun stores a run with its lifecycle records and alerts in a single
// transaction, returning the new run id.
func (r *RunRepository) SaveRun(run Run, records []pipeline.LifecycleRecord, alerts []pipeline.Alert) (int64, error) {
	var runID int64
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO runs (started_at, finished_at, company_ids, documents_total, documents_failed, records_total, validation_ok)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.StartedAt, run.FinishedAt, strings.Join(run.CompanyIDs, ","),
			run.DocumentsTotal, run.DocumentsFail, run.RecordsTotal, run.ValidationOK,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		if runID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read run id: %w", err)
		}

		recordStmt, err := tx.Prepare(`
			INSERT INTO lifecycle_records
			(run_id, vehicle_key, status, inbound_value, outbound_value, profit,
			 inbound_date, outbound_date, reference_date,
			 inbound_document, outbound_document, chassis, plate, model)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare lifecycle insert: %w", err)
		}
		defer recordStmt.Close()

		for _, rec := range records {
			if _, err := recordStmt.Exec(
				runID, rec.Key, string(rec.Status),
				rec.InboundValue, rec.OutboundValue, rec.Profit,
				sideDate(rec.Inbound), sideDate(rec.Outbound), nullTime(rec.ReferenceDate),
				sideDocument(rec.Inbound), sideDocument(rec.Outbound),
				sideChassis(rec), sidePlate(rec), sideModel(rec),
			); err != nil {
				return fmt.Errorf("failed to insert lifecycle record %s: %w", rec.Key, err)
			}
		}

		alertStmt, err := tx.Prepare(`
			INSERT INTO audit_alerts (run_id, direction, vehicle_key, kind, source_path)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare alert insert: %w", err)
		}
		defer alertStmt.Close()

		for _, alert := range alerts {
			if _, err := alertStmt.Exec(runID, alert.Direction, alert.Key, alert.Kind, alert.SourcePath); err != nil {
				return fmt.Errorf("failed to insert audit alert: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("Processing run persisted",
		zap.Int64("run_id", runID),
		zap.Int("lifecycle_records", len(records)),
		zap.Int("alerts", len(alerts)))
	return runID, nil
}

// ListRuns returns persisted runs, newest first.
func (r *RunRepository) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT id, started_at, finished_at, company_ids, documents_total, documents_failed, records_total, validation_ok
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var companyIDs string
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &companyIDs,
			&run.DocumentsTotal, &run.DocumentsFail, &run.RecordsTotal, &run.ValidationOK); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if companyIDs != "" {
			run.CompanyIDs = strings.Split(companyIDs, ",")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func sideDate(side *pipeline.VehicleRecord) interface{} {
	if side == nil {
		return nil
	}
	return nullTime(side.IssuedAt)
}

func sideDocument(side *pipeline.VehicleRecord) interface{} {
	if side == nil {
		return nil
	}
	return side.AccessKey
}

func sideChassis(rec pipeline.LifecycleRecord) interface{} {
	for _, side := range []*pipeline.VehicleRecord{rec.Inbound, rec.Outbound} {
		if side != nil && side.Vehicle.Chassis != nil {
			return *side.Vehicle.Chassis
		}
	}
	return nil
}

func sidePlate(rec pipeline.LifecycleRecord) interface{} {
	for _, side := range []*pipeline.VehicleRecord{rec.Inbound, rec.Outbound} {
		if side != nil && side.Vehicle.Plate != nil {
			return *side.Vehicle.Plate
		}
	}
	return nil
}

func sideModel(rec pipeline.LifecycleRecord) interface{} {
	for _, side := range []*pipeline.VehicleRecord{rec.Inbound, rec.Outbound} {
		if side != nil && side.Vehicle.Model != nil {
			return *side.Vehicle.Model
		}
	}
	return nil
}
