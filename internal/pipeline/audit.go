package pipeline

import (
	"fmt"

	"go.uber.org/zap"
)

// Alert kinds surfaced by the audit pass. Data-quality conditions are rows
// in the alerts table, not errors: the pipeline keeps running.
const (
	AlertDuplicateInbound  = "DUPLICIDADE_ENTRADA"
	AlertDuplicateOutbound = "DUPLICIDADE_SAIDA"
	AlertOrphanOutbound    = "SAIDA_SEM_ENTRADA"
)

// Alert is one integrity finding over the consolidated tables.
type Alert struct {
	Direction  string `json:"tipo"`
	Key        string `json:"chave"`
	Kind       string `json:"erro"`
	SourcePath string `json:"xml_path"`
}

// AuditAlerts reports duplicated identity keys within each direction and
// outbound records with no matching inbound. Every row involved in a
// duplication is reported, not only the extras.
func AuditAlerts(tables ConsolidatedTables, reconciled []LifecycleRecord, logger *zap.Logger) []Alert {
	var alerts []Alert
	alerts = append(alerts, duplicateKeyAlerts(tables.Inbound, "Entrada", AlertDuplicateInbound)...)
	alerts = append(alerts, duplicateKeyAlerts(tables.Outbound, "Saída", AlertDuplicateOutbound)...)

	for _, r := range reconciled {
		if r.Status == StatusOrphanOutbound {
			alerts = append(alerts, Alert{
				Direction:  "Saída",
				Key:        r.Key,
				Kind:       AlertOrphanOutbound,
				SourcePath: r.Outbound.SourcePath,
			})
		}
	}

	if len(alerts) == 0 {
		logger.Info("No audit alerts found")
	} else {
		logger.Warn("Audit alerts generated", zap.Int("alerts", len(alerts)))
	}
	return alerts
}

func duplicateKeyAlerts(records []VehicleRecord, direction, kind string) []Alert {
	counts := make(map[string]int, len(records))
	for _, r := range records {
		if r.Key != "" {
			counts[r.Key]++
		}
	}
	var alerts []Alert
	for _, r := range records {
		if r.Key != "" && counts[r.Key] > 1 {
			alerts = append(alerts, Alert{
				Direction:  direction,
				Key:        r.Key,
				Kind:       kind,
				SourcePath: r.SourcePath,
			})
		}
	}
	return alerts
}

// ValidationResult is the outcome of the final consistency pass. A failed
// validation flags the run; it does not block report generation.
type ValidationResult struct {
	OK     bool
	Issues []string
}

// ValidateFinal checks for duplicated keys among in-stock vehicles and for
// missing critical fields on sold ones.
func ValidateFinal(records []LifecycleRecord, logger *zap.Logger) ValidationResult {
	var issues []string

	stockKeys := make(map[string]int)
	for _, r := range records {
		if r.Status == StatusInStock {
			stockKeys[r.Key]++
		}
	}
	for key, n := range stockKeys {
		if n > 1 {
			issues = append(issues, fmt.Sprintf("duplicated key among in-stock vehicles: %s", key))
		}
	}

	for _, r := range records {
		if r.Status != StatusSold {
			continue
		}
		if r.Inbound.Vehicle.Chassis == nil {
			issues = append(issues, fmt.Sprintf("sold vehicle %s has no inbound chassis", r.Key))
		}
		if r.Inbound.IssuedAt == nil {
			issues = append(issues, fmt.Sprintf("sold vehicle %s has no inbound emission date", r.Key))
		}
		if r.Inbound.TotalValue == nil && r.Inbound.ItemValue == nil {
			issues = append(issues, fmt.Sprintf("sold vehicle %s has no inbound value", r.Key))
		}
		if r.Outbound.IssuedAt == nil {
			issues = append(issues, fmt.Sprintf("sold vehicle %s has no outbound emission date", r.Key))
		}
		if r.Outbound.TotalValue == nil && r.Outbound.ItemValue == nil {
			issues = append(issues, fmt.Sprintf("sold vehicle %s has no outbound value", r.Key))
		}
	}

	if len(issues) > 0 {
		for _, issue := range issues {
			logger.Warn("Final validation issue", zap.String("issue", issue))
		}
		return ValidationResult{OK: false, Issues: issues}
	}

	logger.Info("Final validation passed")
	return ValidationResult{OK: true}
}
