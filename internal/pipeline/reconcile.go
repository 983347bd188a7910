package pipeline

import (
	"time"

	"go.uber.org/zap"
)

// Status is the lifecycle outcome of a vehicle after reconciliation.
type Status string

const (
	StatusSold           Status = "Vendido"
	StatusInStock        Status = "Em Estoque"
	StatusOrphanOutbound Status = "Saída sem Entrada"
	StatusError          Status = "Erro"
)

// LifecycleRecord merges a vehicle's purchase and sale (if any) into one row.
// The sides are explicit sub-records, so there is no ambiguity about which
// emission date belongs to which movement.
type LifecycleRecord struct {
	Key      string         `json:"chave"`
	Inbound  *VehicleRecord `json:"entrada,omitempty"`
	Outbound *VehicleRecord `json:"saida,omitempty"`
	Status   Status         `json:"situacao"`

	InboundValue  float64 `json:"valor_entrada"`
	OutboundValue float64 `json:"valor_venda"`
	Profit        float64 `json:"lucro"`

	InboundMonth     *time.Time `json:"mes_entrada"`
	OutboundMonth    *time.Time `json:"mes_saida"`
	ReferenceDate    *time.Time `json:"data_base"`
	ReferenceMonth   *time.Time `json:"mes_base"`
	ReferenceQuarter *time.Time `json:"trimestre_base"`
}

// Reconcile outer-joins the inbound and outbound tables on the vehicle
// identity key. Outbound rows are first deduplicated by document access key
// (first occurrence wins). Every key present in either side appears exactly
// once in the output: duplicate keys within a side attach their first row
// and are surfaced by the audit step, never silently merged.
func Reconcile(inbound, outbound []VehicleRecord, logger *zap.Logger) []LifecycleRecord {
	outbound = dedupeByAccessKey(outbound, logger)

	index := make(map[string]int)
	var records []LifecycleRecord

	for i := range inbound {
		if inbound[i].Key == "" {
			continue
		}
		if _, seen := index[inbound[i].Key]; seen {
			// duplicate inbound key, reported by the audit pass
			continue
		}
		index[inbound[i].Key] = len(records)
		records = append(records, LifecycleRecord{Key: inbound[i].Key, Inbound: &inbound[i]})
	}

	for i := range outbound {
		if outbound[i].Key == "" {
			continue
		}
		if pos, ok := index[outbound[i].Key]; ok {
			if records[pos].Outbound == nil {
				records[pos].Outbound = &outbound[i]
			}
			continue
		}
		index[outbound[i].Key] = len(records)
		records = append(records, LifecycleRecord{Key: outbound[i].Key, Outbound: &outbound[i]})
	}

	for i := range records {
		derive(&records[i])
	}

	logger.Info("Fiscal stock reconciled",
		zap.Int("inbound", len(inbound)),
		zap.Int("outbound", len(outbound)),
		zap.Int("lifecycle_records", len(records)))
	return records
}

// dedupeByAccessKey removes outbound rows repeating an already seen document
// access key, keeping the first occurrence. Rows without an access key are
// always kept.
func dedupeByAccessKey(outbound []VehicleRecord, logger *zap.Logger) []VehicleRecord {
	seen := make(map[string]struct{}, len(outbound))
	deduped := make([]VehicleRecord, 0, len(outbound))
	for _, r := range outbound {
		if r.AccessKey != "" {
			if _, dup := seen[r.AccessKey]; dup {
				continue
			}
			seen[r.AccessKey] = struct{}{}
		}
		deduped = append(deduped, r)
	}
	if removed := len(outbound) - len(deduped); removed > 0 {
		logger.Info("Removed duplicated outbound rows by access key",
			zap.Int("removed", removed))
	}
	return deduped
}

func derive(r *LifecycleRecord) {
	switch {
	case r.Inbound != nil && r.Outbound != nil:
		r.Status = StatusSold
	case r.Inbound != nil:
		r.Status = StatusInStock
	case r.Outbound != nil:
		r.Status = StatusOrphanOutbound
	default:
		r.Status = StatusError
	}

	r.InboundValue = sideValue(r.Inbound)
	r.OutboundValue = sideValue(r.Outbound)
	r.Profit = r.OutboundValue - r.InboundValue

	var inboundDate, outboundDate *time.Time
	if r.Inbound != nil {
		inboundDate = r.Inbound.IssuedAt
	}
	if r.Outbound != nil {
		outboundDate = r.Outbound.IssuedAt
	}
	r.InboundMonth = truncateMonth(inboundDate)
	r.OutboundMonth = truncateMonth(outboundDate)

	// reference date prioritizes the sale for sold vehicles
	r.ReferenceDate = outboundDate
	if r.ReferenceDate == nil {
		r.ReferenceDate = inboundDate
	}
	r.ReferenceMonth = truncateMonth(r.ReferenceDate)
	r.ReferenceQuarter = truncateQuarter(r.ReferenceDate)
}

// sideValue derives one side's monetary value: the declared document total
// when present, else the item value, else zero.
func sideValue(r *VehicleRecord) float64 {
	if r == nil {
		return 0
	}
	if r.TotalValue != nil {
		return *r.TotalValue
	}
	if r.ItemValue != nil {
		return *r.ItemValue
	}
	return 0
}

func truncateMonth(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	m := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return &m
}

func truncateQuarter(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	quarterStart := time.Month((int(t.Month())-1)/3*3 + 1)
	q := time.Date(t.Year(), quarterStart, 1, 0, 0, 0, 0, t.Location())
	return &q
}
