package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/pipeline"
	"github.com/openfiscal/estoque-veiculos/pkg/database"
)

func newTestRepo(t *testing.T) *RunRepository {
	t.Helper()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "runs.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewRunRepository(db, zap.NewNop())
}

func sampleRecords() []pipeline.LifecycleRecord {
	buy := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	sell := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	chassis := "98M50AA00L4A92818"

	in := pipeline.VehicleRecord{Key: chassis}
	in.AccessKey = "NFe001"
	in.IssuedAt = &buy
	inValue := 30000.0
	in.TotalValue = &inValue
	in.Vehicle.Chassis = &chassis

	out := pipeline.VehicleRecord{Key: chassis}
	out.AccessKey = "NFe002"
	out.IssuedAt = &sell
	outValue := 42000.0
	out.TotalValue = &outValue

	return pipeline.Reconcile([]pipeline.VehicleRecord{in}, []pipeline.VehicleRecord{out}, zap.NewNop())
}

func TestSaveRunAndListRuns(t *testing.T) {
	repo := newTestRepo(t)

	records := sampleRecords()
	alerts := []pipeline.Alert{
		{Direction: "Saída", Key: "ABC1D23", Kind: pipeline.AlertOrphanOutbound, SourcePath: "venda.xml"},
	}

	run := Run{
		StartedAt:      time.Now().Add(-time.Minute),
		FinishedAt:     time.Now(),
		CompanyIDs:     []string{"12345678000190", "12345678000271"},
		DocumentsTotal: 10,
		DocumentsFail:  1,
		RecordsTotal:   9,
		ValidationOK:   true,
	}

	id, err := repo.SaveRun(run, records, alerts)
	require.NoError(t, err)
	assert.Positive(t, id)

	runs, err := repo.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, run.CompanyIDs, runs[0].CompanyIDs)
	assert.Equal(t, 10, runs[0].DocumentsTotal)
	assert.Equal(t, 1, runs[0].DocumentsFail)
	assert.Equal(t, 9, runs[0].RecordsTotal)
	assert.True(t, runs[0].ValidationOK)

	var lifecycleCount, alertCount int
	require.NoError(t, repo.db.QueryRow(
		"SELECT COUNT(*) FROM lifecycle_records WHERE run_id = ?", id).Scan(&lifecycleCount))
	require.NoError(t, repo.db.QueryRow(
		"SELECT COUNT(*) FROM audit_alerts WHERE run_id = ?", id).Scan(&alertCount))
	assert.Equal(t, len(records), lifecycleCount)
	assert.Equal(t, len(alerts), alertCount)

	var status, chassis string
	require.NoError(t, repo.db.QueryRow(
		"SELECT status, chassis FROM lifecycle_records WHERE run_id = ?", id).Scan(&status, &chassis))
	assert.Equal(t, string(pipeline.StatusSold), status)
	assert.Equal(t, "98M50AA00L4A92818", chassis)
}

func TestListRunsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)

	first, err := repo.SaveRun(Run{StartedAt: time.Now(), FinishedAt: time.Now()}, nil, nil)
	require.NoError(t, err)
	second, err := repo.SaveRun(Run{StartedAt: time.Now(), FinishedAt: time.Now()}, nil, nil)
	require.NoError(t, err)

	runs, err := repo.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	// empty company list round-trips as nil
	assert.Nil(t, runs[0].CompanyIDs)

	limited, err := repo.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
