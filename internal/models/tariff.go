package models

import (
	"fmt"
	"time"

	"water-savings-platform/internal/calculator"
)

// TariffEntry is one row of the calculation_constants key/value table
type TariffEntry struct {
	Key         string    `json:"key" db:"key"`
	Value       float64   `json:"value" db:"value"`
	Description string    `json:"description" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Tariff keys as stored in calculation_constants
const (
	TariffWaterPrice           = "water_price_per_m3"
	TariffSewagePercent        = "sewage_tariff_percent"
	TariffTechnologyEfficiency = "technology_efficiency_percent"
	TariffEquipmentLifetime    = "equipment_lifetime_years"
	TariffInstallBaseCost      = "install_base_cost"
	TariffMaintenanceBase      = "maintenance_annual_cost_base"
	TariffInflationRate        = "inflation_rate_annual"
	TariffInterestRate         = "interest_rate_annual"
)

// TariffKeys lists every key the typed constants are built from, in display order
var TariffKeys = []string{
	TariffWaterPrice,
	TariffSewagePercent,
	TariffTechnologyEfficiency,
	TariffEquipmentLifetime,
	TariffInstallBaseCost,
	TariffMaintenanceBase,
	TariffInflationRate,
	TariffInterestRate,
}

func tariffField(t *calculator.TariffConstants, key string) *float64 {
	switch key {
	case TariffWaterPrice:
		return &t.WaterPricePerM3
	case TariffSewagePercent:
		return &t.SewageTariffPercent
	case TariffTechnologyEfficiency:
		return &t.TechnologyEfficiencyPercent
	case TariffEquipmentLifetime:
		return &t.EquipmentLifetimeYears
	case TariffInstallBaseCost:
		return &t.InstallBaseCost
	case TariffMaintenanceBase:
		return &t.MaintenanceAnnualCostBase
	case TariffInflationRate:
		return &t.InflationRateAnnual
	case TariffInterestRate:
		return &t.InterestRateAnnual
	default:
		return nil
	}
}

// IsTariffKey reports whether key is a known constant
func IsTariffKey(key string) bool {
	var t calculator.TariffConstants
	return tariffField(&t, key) != nil
}

// ResolveTariffs builds typed constants from table rows. Keys missing from rows keep
// their default; unknown keys are returned so the caller can log them.
func ResolveTariffs(rows []TariffEntry) (calculator.TariffConstants, []string) {
	t := calculator.DefaultTariffs()
	var unknown []string
	for _, row := range rows {
		if f := tariffField(&t, row.Key); f != nil {
			*f = row.Value
			continue
		}
		unknown = append(unknown, row.Key)
	}
	return t, unknown
}

// TariffEntries flattens typed constants into table rows, in TariffKeys order
func TariffEntries(t calculator.TariffConstants) []TariffEntry {
	rows := make([]TariffEntry, 0, len(TariffKeys))
	for _, key := range TariffKeys {
		rows = append(rows, TariffEntry{Key: key, Value: *tariffField(&t, key)})
	}
	return rows
}

// ValidateTariff checks a single admin edit
func ValidateTariff(key string, value float64) error {
	if !IsTariffKey(key) {
		return &ValidationError{Field: "key", Value: key, Message: "unknown calculation constant"}
	}
	if value < 0 {
		return &ValidationError{Field: key, Value: fmt.Sprint(value), Message: "must not be negative"}
	}
	if key == TariffEquipmentLifetime && value == 0 {
		return &ValidationError{Field: key, Value: "0", Message: "must be greater than 0"}
	}
	return nil
}
