package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/nfe"
)

// vehicleRow builds a keyed vehicle record with an emission date and a
// declared document total.
func vehicleRow(key, accessKey string, issued time.Time, total float64) VehicleRecord {
	issuedAt := issued
	totalValue := total
	return VehicleRecord{
		Record: nfe.Record{
			LineItem: nfe.LineItem{
				DocumentHeader: nfe.DocumentHeader{
					AccessKey:  accessKey,
					IssuedAt:   &issuedAt,
					TotalValue: &totalValue,
				},
			},
		},
		Key: key,
	}
}

func byKey(records []LifecycleRecord) map[string]LifecycleRecord {
	out := make(map[string]LifecycleRecord, len(records))
	for _, r := range records {
		out[r.Key] = r
	}
	return out
}

func TestReconcileStatuses(t *testing.T) {
	buy := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	sell := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	inbound := []VehicleRecord{
		vehicleRow("CHASSIA", "NFe001", buy, 30000),
		vehicleRow("CHASSIB", "NFe002", buy, 45000),
	}
	outbound := []VehicleRecord{
		vehicleRow("CHASSIA", "NFe003", sell, 42000),
		vehicleRow("CHASSIC", "NFe004", sell, 18000),
	}

	records := Reconcile(inbound, outbound, zap.NewNop())
	require.Len(t, records, 3)
	index := byKey(records)

	sold := index["CHASSIA"]
	assert.Equal(t, StatusSold, sold.Status)
	assert.InDelta(t, 30000, sold.InboundValue, 0.001)
	assert.InDelta(t, 42000, sold.OutboundValue, 0.001)
	assert.InDelta(t, 12000, sold.Profit, 0.001)
	require.NotNil(t, sold.InboundMonth)
	assert.Equal(t, time.February, sold.InboundMonth.Month())
	require.NotNil(t, sold.OutboundMonth)
	assert.Equal(t, time.May, sold.OutboundMonth.Month())
	// sold vehicles are anchored on the sale date
	require.NotNil(t, sold.ReferenceMonth)
	assert.Equal(t, time.May, sold.ReferenceMonth.Month())
	require.NotNil(t, sold.ReferenceQuarter)
	assert.Equal(t, time.April, sold.ReferenceQuarter.Month())

	inStock := index["CHASSIB"]
	assert.Equal(t, StatusInStock, inStock.Status)
	assert.InDelta(t, 45000, inStock.InboundValue, 0.001)
	assert.InDelta(t, -45000, inStock.Profit, 0.001)
	assert.Nil(t, inStock.OutboundMonth)
	require.NotNil(t, inStock.ReferenceMonth)
	assert.Equal(t, time.February, inStock.ReferenceMonth.Month())

	orphan := index["CHASSIC"]
	assert.Equal(t, StatusOrphanOutbound, orphan.Status)
	assert.Nil(t, orphan.Inbound)
	assert.InDelta(t, 18000, orphan.OutboundValue, 0.001)
	assert.InDelta(t, 18000, orphan.Profit, 0.001)
}

func TestReconcileDedupesOutboundByAccessKey(t *testing.T) {
	sell := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	outbound := []VehicleRecord{
		vehicleRow("CHASSIA", "NFe100", sell, 42000),
		vehicleRow("CHASSIA", "NFe100", sell, 42000),
		vehicleRow("CHASSIB", "", sell, 10000),
		vehicleRow("CHASSIC", "", sell, 11000),
	}

	records := Reconcile(nil, outbound, zap.NewNop())
	// repeated access key collapses; empty access keys never collapse
	assert.Len(t, records, 3)
}

func TestReconcileDuplicateInboundFirstWins(t *testing.T) {
	buy := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	inbound := []VehicleRecord{
		vehicleRow("CHASSIA", "NFe200", buy, 30000),
		vehicleRow("CHASSIA", "NFe201", buy, 99000),
	}

	records := Reconcile(inbound, nil, zap.NewNop())
	require.Len(t, records, 1)
	assert.InDelta(t, 30000, records[0].InboundValue, 0.001)
	assert.Equal(t, "NFe200", records[0].Inbound.AccessKey)
}

func TestReconcileSkipsEmptyKeys(t *testing.T) {
	buy := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	inbound := []VehicleRecord{vehicleRow("", "NFe300", buy, 30000)}
	outbound := []VehicleRecord{vehicleRow("", "NFe301", buy, 40000)}

	records := Reconcile(inbound, outbound, zap.NewNop())
	assert.Empty(t, records)
}

func TestReconcileValueFallback(t *testing.T) {
	buy := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	noTotal := vehicleRow("CHASSIA", "NFe400", buy, 0)
	noTotal.TotalValue = nil
	itemValue := 25000.0
	noTotal.ItemValue = &itemValue

	nothing := vehicleRow("CHASSIB", "NFe401", buy, 0)
	nothing.TotalValue = nil

	records := Reconcile([]VehicleRecord{noTotal, nothing}, nil, zap.NewNop())
	require.Len(t, records, 2)
	index := byKey(records)

	assert.InDelta(t, 25000, index["CHASSIA"].InboundValue, 0.001)
	assert.InDelta(t, 0, index["CHASSIB"].InboundValue, 0.001)
}

// Splitting a batch by key and reconciling the parts yields the same
// lifecycle rows as reconciling everything at once.
func TestReconcileUnionOfDisjointBatches(t *testing.T) {
	buy := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	sell := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	inboundA := []VehicleRecord{vehicleRow("CHASSIA", "NFe500", buy, 30000)}
	outboundA := []VehicleRecord{vehicleRow("CHASSIA", "NFe501", sell, 40000)}
	inboundB := []VehicleRecord{vehicleRow("CHASSIB", "NFe502", buy, 20000)}
	outboundB := []VehicleRecord{vehicleRow("CHASSIC", "NFe503", sell, 15000)}

	whole := byKey(Reconcile(
		append(append([]VehicleRecord{}, inboundA...), inboundB...),
		append(append([]VehicleRecord{}, outboundA...), outboundB...),
		zap.NewNop()))

	parts := byKey(append(
		Reconcile(inboundA, outboundA, zap.NewNop()),
		Reconcile(inboundB, outboundB, zap.NewNop())...))

	require.Len(t, whole, 3)
	require.Len(t, parts, 3)
	for key, w := range whole {
		p, ok := parts[key]
		require.True(t, ok, key)
		assert.Equal(t, w.Status, p.Status, key)
		assert.InDelta(t, w.InboundValue, p.InboundValue, 0.001, key)
		assert.InDelta(t, w.OutboundValue, p.OutboundValue, 0.001, key)
		assert.InDelta(t, w.Profit, p.Profit, 0.001, key)
	}
}

func TestTruncateQuarter(t *testing.T) {
	tests := []struct {
		month time.Month
		want  time.Month
	}{
		{time.January, time.January},
		{time.March, time.January},
		{time.April, time.April},
		{time.June, time.April},
		{time.July, time.July},
		{time.December, time.October},
	}
	for _, tt := range tests {
		in := time.Date(2024, tt.month, 15, 10, 30, 0, 0, time.UTC)
		got := truncateQuarter(&in)
		require.NotNil(t, got)
		assert.Equal(t, tt.want, got.Month())
		assert.Equal(t, 1, got.Day())
	}
	assert.Nil(t, truncateQuarter(nil))
}
