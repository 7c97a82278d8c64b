package calculator

import "fmt"

// DefaultDeltaT is the design temperature difference the wizard starts from.
// It is carried on the input for city-table compatibility and does not enter the cost math.
const DefaultDeltaT = 6.0

// SimulationInput is what the wizard (or an API caller) supplies for one simulation.
// Exactly one of OperatingDaysPerWeek and OperatingDaysPerYear must be set.
type SimulationInput struct {
	CapacityKW           float64 `json:"capacity_kw" yaml:"capacity_kw"`
	CityID               int64   `json:"city_id" yaml:"city_id"`
	OperatingHoursPerDay int     `json:"operating_hours_per_day" yaml:"operating_hours_per_day"`
	OperatingDaysPerWeek int     `json:"operating_days_per_week,omitempty" yaml:"operating_days_per_week,omitempty"`
	OperatingDaysPerYear int     `json:"operating_days_per_year,omitempty" yaml:"operating_days_per_year,omitempty"`
	DeltaT               float64 `json:"delta_t,omitempty" yaml:"delta_t,omitempty"`
}

// WithDefaults fills optional fields
func (in SimulationInput) WithDefaults() SimulationInput {
	if in.DeltaT == 0 {
		in.DeltaT = DefaultDeltaT
	}
	return in
}

// CityParameters are the per-city climate and engineering constants used by Compute
type CityParameters struct {
	ModuleCapacityKW                 float64 `json:"module_capacity_kw"`
	NominalWaterFlowLPerMin          float64 `json:"nominal_water_flow_l_per_min"`
	EvaporationFanLogicPercent       float64 `json:"evaporation_fan_logic_percent"`
	YearlyConsumptionDryCoolerLiters float64 `json:"yearly_consumption_dry_cooler_liters"`
	YearlyConsumptionTowerLiters     float64 `json:"yearly_consumption_tower_liters"`
	AverageTemperatureC              float64 `json:"average_temperature_c"`
}

// TariffConstants are the global cost constants shared by every simulation
type TariffConstants struct {
	WaterPricePerM3             float64 `json:"water_price_per_m3" yaml:"water_price_per_m3"`
	SewageTariffPercent         float64 `json:"sewage_tariff_percent" yaml:"sewage_tariff_percent"`
	TechnologyEfficiencyPercent float64 `json:"technology_efficiency_percent" yaml:"technology_efficiency_percent"`
	EquipmentLifetimeYears      float64 `json:"equipment_lifetime_years" yaml:"equipment_lifetime_years"`
	InstallBaseCost             float64 `json:"install_base_cost" yaml:"install_base_cost"`
	MaintenanceAnnualCostBase   float64 `json:"maintenance_annual_cost_base" yaml:"maintenance_annual_cost_base"`
	InflationRateAnnual         float64 `json:"inflation_rate_annual" yaml:"inflation_rate_annual"`
	InterestRateAnnual          float64 `json:"interest_rate_annual" yaml:"interest_rate_annual"`
}

// DefaultTariffs are used for any constant missing from the tariff table
func DefaultTariffs() TariffConstants {
	return TariffConstants{
		WaterPricePerM3:             10.5,
		SewageTariffPercent:         80,
		TechnologyEfficiencyPercent: 90,
		EquipmentLifetimeYears:      15,
		InstallBaseCost:             25000,
		MaintenanceAnnualCostBase:   1500,
		InflationRateAnnual:         4.5,
		InterestRateAnnual:          10.75,
	}
}

// Consumption is a yearly water volume spread evenly over calendar periods (liters)
type Consumption struct {
	Hourly  float64 `json:"hourly"`
	Daily   float64 `json:"daily"`
	Monthly float64 `json:"monthly"`
	Yearly  float64 `json:"yearly"`
}

// DryCoolerProjection is the sized DryCooler installation
type DryCoolerProjection struct {
	Modules          int         `json:"modules"`
	TotalCapacityKW  float64     `json:"total_capacity_kw"`
	NominalWaterFlow float64     `json:"nominal_water_flow"`
	EvaporationFlow  float64     `json:"evaporation_flow"`
	Consumption      Consumption `json:"consumption"`
	AnnualCost       float64     `json:"annual_cost"`
}

// TowerProjection is the conventional cooling tower baseline
type TowerProjection struct {
	NominalWaterFlow float64     `json:"nominal_water_flow"`
	EvaporationFlow  float64     `json:"evaporation_flow"`
	Consumption      Consumption `json:"consumption"`
	AnnualCost       float64     `json:"annual_cost"`
}

// Comparison holds the savings and financial projection
type Comparison struct {
	YearlyDifferenceLiters  float64 `json:"yearly_difference_liters"`
	YearlyDifferencePercent float64 `json:"yearly_difference_percent"`
	AnnualSavingsCurrency   float64 `json:"annual_savings_currency"`
	ImplementationCost      float64 `json:"implementation_cost"`
	AnnualMaintenanceCost   float64 `json:"annual_maintenance_cost"`
	NetAnnualSavings        float64 `json:"net_annual_savings"`
	PaysBack                bool    `json:"pays_back"`
	PaybackYears            float64 `json:"payback_years"`
	TotalLifetimeSavings    float64 `json:"total_lifetime_savings"`
	ROIPercent              float64 `json:"roi_percent"`
}

// SimulationResult is the complete output of Compute
type SimulationResult struct {
	CapacityRatio   float64             `json:"capacity_ratio"`
	OperatingFactor float64             `json:"operating_factor"`
	DryCooler       DryCoolerProjection `json:"dry_cooler"`
	Tower           TowerProjection     `json:"tower"`
	Comparison      Comparison          `json:"comparison"`
}

// InvalidInputError is the only error Compute returns. Field names the offending input.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Message)
}

// IsTransient returns false; bad input never succeeds on retry
func (e *InvalidInputError) IsTransient() bool {
	return false
}

func invalid(field, format string, args ...interface{}) *InvalidInputError {
	return &InvalidInputError{Field: field, Message: fmt.Sprintf(format, args...)}
}
