package fiscal

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/pipeline"
)

// Presumed-profit regime rates applied over the profit of each sale.
const (
	rateICMSPresumed      = 0.19
	ratePISCOFINSPresumed = 0.0365
	rateIRPJCSLLBase      = 0.32
	rateIRPJ              = 0.15
	rateCSLL              = 0.09
	rateIRPJSurcharge     = 0.10
	surchargeThreshold    = 60000.0
)

// QuarterlyTaxRow aggregates presumed-profit taxes for one calendar quarter
// of sold vehicles.
type QuarterlyTaxRow struct {
	Quarter           time.Time `json:"trimestre"`
	Profit            float64   `json:"lucro"`
	ICMSPresumed      float64   `json:"icms_presumido"`
	PISCOFINSPresumed float64   `json:"pis_cofins_presumido"`
	IRPJCSLLBase      float64   `json:"base_irpj_csll"`
	IRPJ              float64   `json:"irpj"`
	IRPJSurcharge     float64   `json:"adicional_irpj"`
	CSLL              float64   `json:"csll"`
	TotalTax          float64   `json:"total_tributos"`
	NetProfit         float64   `json:"lucro_liquido"`
}

// QuarterlyTax computes the presumed-profit tax table over sold lifecycle
// records, one row per calendar quarter, sorted chronologically. The IRPJ
// surcharge is computed on the quarter-aggregated base, not per sale.
func QuarterlyTax(records []pipeline.LifecycleRecord, logger *zap.Logger) []QuarterlyTaxRow {
	byQuarter := make(map[time.Time]*QuarterlyTaxRow)
	for _, r := range records {
		if r.Status != pipeline.StatusSold || r.ReferenceQuarter == nil {
			continue
		}
		quarter := *r.ReferenceQuarter
		row, ok := byQuarter[quarter]
		if !ok {
			row = &QuarterlyTaxRow{Quarter: quarter}
			byQuarter[quarter] = row
		}
		row.Profit += r.Profit
	}

	rows := make([]QuarterlyTaxRow, 0, len(byQuarter))
	for _, row := range byQuarter {
		row.ICMSPresumed = row.Profit * rateICMSPresumed
		row.PISCOFINSPresumed = row.Profit * ratePISCOFINSPresumed
		row.IRPJCSLLBase = row.Profit * rateIRPJCSLLBase
		row.IRPJ = row.IRPJCSLLBase * rateIRPJ
		row.CSLL = row.IRPJCSLLBase * rateCSLL
		if row.IRPJCSLLBase > surchargeThreshold {
			row.IRPJSurcharge = (row.IRPJCSLLBase - surchargeThreshold) * rateIRPJSurcharge
		}
		row.TotalTax = row.ICMSPresumed + row.PISCOFINSPresumed + row.IRPJ + row.CSLL + row.IRPJSurcharge
		row.NetProfit = row.Profit - row.TotalTax
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Quarter.Before(rows[j].Quarter) })

	logger.Info("Quarterly tax table computed", zap.Int("quarters", len(rows)))
	return rows
}
