package models

import (
	"strings"
	"time"

	"water-savings-platform/internal/calculator"
)

// City is a catalog row: a location with its climate data and the engineering
// constants measured for DryCooler modules installed there
type City struct {
	ID                               int64     `json:"id" db:"id" yaml:"id,omitempty"`
	Name                             string    `json:"name" db:"name" yaml:"name"`
	State                            string    `json:"state" db:"state" yaml:"state"`
	Active                           bool      `json:"active" db:"active" yaml:"active"`
	ModuleCapacityKW                 float64   `json:"module_capacity_kw" db:"module_capacity_kw" yaml:"module_capacity_kw"`
	NominalWaterFlowLPerMin          float64   `json:"nominal_water_flow_l_per_min" db:"nominal_water_flow_l_per_min" yaml:"nominal_water_flow_l_per_min"`
	EvaporationFanLogicPercent       float64   `json:"evaporation_fan_logic_percent" db:"evaporation_fan_logic_percent" yaml:"evaporation_fan_logic_percent"`
	YearlyConsumptionDryCoolerLiters float64   `json:"yearly_consumption_dry_cooler_liters" db:"yearly_consumption_dry_cooler_liters" yaml:"yearly_consumption_dry_cooler_liters"`
	WaterConsumptionYearTempLiters   float64   `json:"water_consumption_year_temp_liters" db:"water_consumption_year_temp_liters" yaml:"water_consumption_year_temp_liters"`
	WaterConsumptionYearFanLiters    float64   `json:"water_consumption_year_fan_liters" db:"water_consumption_year_fan_liters" yaml:"water_consumption_year_fan_liters"`
	YearlyConsumptionTowerLiters     float64   `json:"yearly_consumption_tower_liters" db:"yearly_consumption_tower_liters" yaml:"yearly_consumption_tower_liters"`
	AverageTemperatureC              float64   `json:"average_temperature_c" db:"average_temperature_c" yaml:"average_temperature_c"`
	DeltaT                           float64   `json:"delta_t" db:"delta_t" yaml:"delta_t"`
	CreatedAt                        time.Time `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt                        time.Time `json:"updated_at" db:"updated_at" yaml:"-"`
}

// DryCoolerYearlyLiters is the explicit yearly DryCooler baseline, or the sum of the
// temperature-driven and fan-driven components when the explicit value is not set
func (c *City) DryCoolerYearlyLiters() float64 {
	if c.YearlyConsumptionDryCoolerLiters > 0 {
		return c.YearlyConsumptionDryCoolerLiters
	}
	return c.WaterConsumptionYearTempLiters + c.WaterConsumptionYearFanLiters
}

// Parameters projects the row onto what the calculator needs
func (c *City) Parameters() *calculator.CityParameters {
	return &calculator.CityParameters{
		ModuleCapacityKW:                 c.ModuleCapacityKW,
		NominalWaterFlowLPerMin:          c.NominalWaterFlowLPerMin,
		EvaporationFanLogicPercent:       c.EvaporationFanLogicPercent,
		YearlyConsumptionDryCoolerLiters: c.DryCoolerYearlyLiters(),
		YearlyConsumptionTowerLiters:     c.YearlyConsumptionTowerLiters,
		AverageTemperatureC:              c.AverageTemperatureC,
	}
}

// Normalize trims text fields and applies defaults before a write
func (c *City) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.State = strings.ToUpper(strings.TrimSpace(c.State))
	if c.DeltaT == 0 {
		c.DeltaT = calculator.DefaultDeltaT
	}
}

// Validate checks the admin-entered row. Baselines may be zero (the calculator
// degrades those to zero savings) but never negative.
func (c *City) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if c.ModuleCapacityKW <= 0 {
		return &ValidationError{Field: "module_capacity_kw", Message: "must be greater than 0"}
	}
	if c.EvaporationFanLogicPercent < 0 || c.EvaporationFanLogicPercent > 100 {
		return &ValidationError{Field: "evaporation_fan_logic_percent", Message: "must be between 0 and 100"}
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"nominal_water_flow_l_per_min", c.NominalWaterFlowLPerMin},
		{"yearly_consumption_dry_cooler_liters", c.YearlyConsumptionDryCoolerLiters},
		{"water_consumption_year_temp_liters", c.WaterConsumptionYearTempLiters},
		{"water_consumption_year_fan_liters", c.WaterConsumptionYearFanLiters},
		{"yearly_consumption_tower_liters", c.YearlyConsumptionTowerLiters},
	} {
		if f.value < 0 {
			return &ValidationError{Field: f.name, Message: "must not be negative"}
		}
	}
	return nil
}
