package fiscal

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/pipeline"
)

// MonthlySummaryRow aggregates one company's movements within one reference
// month.
type MonthlySummaryRow struct {
	CompanyID     string    `json:"empresa_cnpj"`
	Month         time.Time `json:"mes"`
	TotalInbound  float64   `json:"total_entradas"`
	TotalOutbound float64   `json:"total_saidas"`
	GrossProfit   float64   `json:"lucro_bruto"`
	TaxDebit      float64   `json:"icms_debito"`
	TaxCredit     float64   `json:"icms_credito"`
	NetProfit     float64   `json:"lucro_liquido"`
	StockBalance  float64   `json:"saldo_estoque"`
}

type monthKey struct {
	company string
	month   time.Time
}

// MonthlySummary groups lifecycle records by (company id, reference month).
// Rows without a reference month are dropped. The company id is taken from
// the inbound side issuer; orphan outbound rows group under the empty id.
func MonthlySummary(records []pipeline.LifecycleRecord, logger *zap.Logger) []MonthlySummaryRow {
	byMonth := make(map[monthKey]*MonthlySummaryRow)
	for _, r := range records {
		if r.ReferenceMonth == nil {
			continue
		}
		key := monthKey{company: companyID(r), month: *r.ReferenceMonth}
		row, ok := byMonth[key]
		if !ok {
			row = &MonthlySummaryRow{CompanyID: key.company, Month: key.month}
			byMonth[key] = row
		}

		row.TotalInbound += r.InboundValue
		row.TotalOutbound += r.OutboundValue
		row.GrossProfit += r.Profit
		row.TaxDebit += icmsValue(r.Outbound)
		row.TaxCredit += icmsValue(r.Inbound)
		if r.Status == pipeline.StatusInStock {
			row.StockBalance += r.InboundValue
		}
	}

	rows := make([]MonthlySummaryRow, 0, len(byMonth))
	for _, row := range byMonth {
		row.NetProfit = row.GrossProfit - (row.TaxDebit - row.TaxCredit)
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CompanyID != rows[j].CompanyID {
			return rows[i].CompanyID < rows[j].CompanyID
		}
		return rows[i].Month.Before(rows[j].Month)
	})

	logger.Info("Monthly summary computed", zap.Int("rows", len(rows)))
	return rows
}

// KPISet holds the scalar roll-ups over the whole reconciled table. Values
// are raw floats; currency formatting happens at the report boundary.
type KPISet struct {
	TotalSold   float64 `json:"total_vendido"`
	GrossProfit float64 `json:"lucro_bruto"`
	TaxDebit    float64 `json:"icms_debito"`
	TaxCredit   float64 `json:"icms_credito"`
	NetTax      float64 `json:"icms_apurado"`
	NetProfit   float64 `json:"lucro_liquido"`
	StockValue  float64 `json:"estoque_atual"`
}

// KPIs computes the financial roll-up: sale aggregates over sold vehicles,
// stock valuation over the in-stock ones.
func KPIs(records []pipeline.LifecycleRecord, logger *zap.Logger) KPISet {
	var k KPISet
	for _, r := range records {
		switch r.Status {
		case pipeline.StatusSold:
			k.TotalSold += r.OutboundValue
			k.GrossProfit += r.Profit
			k.TaxDebit += icmsValue(r.Outbound)
			k.TaxCredit += icmsValue(r.Inbound)
		case pipeline.StatusInStock:
			k.StockValue += r.InboundValue
		}
	}
	k.NetTax = k.TaxDebit - k.TaxCredit
	k.NetProfit = k.GrossProfit - k.NetTax

	logger.Info("KPIs computed",
		zap.Float64("total_sold", k.TotalSold),
		zap.Float64("net_profit", k.NetProfit),
		zap.Float64("stock_value", k.StockValue))
	return k
}

func companyID(r pipeline.LifecycleRecord) string {
	if r.Inbound != nil {
		return r.Inbound.IssuerID
	}
	return ""
}

func icmsValue(r *pipeline.VehicleRecord) float64 {
	if r == nil || r.ICMS.Value == nil {
		return 0
	}
	return *r.ICMS.Value
}
