package pipeline

import (
	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/nfe"
)

// VehicleRecord is a classified vehicle record carrying its normalized
// identity key. An empty key means the record cannot take part in identity
// joins, though it remains in the per-direction tables for auditing.
type VehicleRecord struct {
	nfe.Record
	Key string
}

// ConsolidatedTables holds the vehicle-only view of a batch split by
// movement direction.
type ConsolidatedTables struct {
	Vehicles []VehicleRecord
	Inbound  []VehicleRecord
	Outbound []VehicleRecord
}

// VehicleKey derives the normalized identity key: uppercased chassis with
// non-alphanumerics stripped, falling back to the plate, else empty.
func VehicleKey(v nfe.VehicleInfo) string {
	if v.Chassis != nil {
		if key := nfe.CleanKey(*v.Chassis); key != "" {
			return key
		}
	}
	if v.Plate != nil {
		return nfe.CleanKey(*v.Plate)
	}
	return ""
}

// Consolidate filters the batch table down to vehicle records, computes the
// identity key and splits by direction.
func Consolidate(records []nfe.Record, logger *zap.Logger) ConsolidatedTables {
	var tables ConsolidatedTables
	for _, r := range records {
		if r.Category != nfe.CategoryVehicle {
			continue
		}
		vr := VehicleRecord{Record: r, Key: VehicleKey(r.Vehicle)}
		tables.Vehicles = append(tables.Vehicles, vr)
		switch r.Direction {
		case nfe.DirectionInbound:
			tables.Inbound = append(tables.Inbound, vr)
		case nfe.DirectionOutbound:
			tables.Outbound = append(tables.Outbound, vr)
		}
	}

	logger.Info("Vehicle records consolidated",
		zap.Int("vehicles", len(tables.Vehicles)),
		zap.Int("inbound", len(tables.Inbound)),
		zap.Int("outbound", len(tables.Outbound)))
	return tables
}
