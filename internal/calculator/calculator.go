// Package calculator sizes a DryCooler installation for a requested capacity and compares
// its water use and cost against a conventional cooling tower.
//
// Compute is pure and holds no state, so it is safe to call concurrently.
package calculator

import (
	"math"
)

const (
	hoursPerYear  = 8760.0
	daysPerYear   = 365.0
	monthsPerYear = 12.0
	litersPerM3   = 1000.0

	maxHoursPerDay = 24
	maxDaysPerWeek = 7
	maxDaysPerYear = 365
	maxModuleCount = math.MaxInt32
)

// SafeNumber coerces NaN and ±Inf to 0. Missing or zero city baselines must degrade to a
// displayable zero instead of leaking NaN into results.
func SafeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// OperatingFactor derates full-time (24h x 7d) consumption to the given schedule.
// Exactly one of daysPerWeek and daysOfYear must be non-zero.
func OperatingFactor(hoursPerDay, daysPerWeek, daysOfYear int) (float64, error) {
	if hoursPerDay < 1 || hoursPerDay > maxHoursPerDay {
		return 0, invalid("operating_hours_per_day", "must be between 1 and %d, got %d", maxHoursPerDay, hoursPerDay)
	}

	switch {
	case daysPerWeek != 0 && daysOfYear != 0:
		return 0, invalid("operating_days_per_week", "set either days per week or days per year, not both")
	case daysPerWeek != 0:
		if daysPerWeek < 1 || daysPerWeek > maxDaysPerWeek {
			return 0, invalid("operating_days_per_week", "must be between 1 and %d, got %d", maxDaysPerWeek, daysPerWeek)
		}
		return float64(hoursPerDay) / 24 * float64(daysPerWeek) / 7, nil
	case daysOfYear != 0:
		if daysOfYear < 1 || daysOfYear > maxDaysPerYear {
			return 0, invalid("operating_days_per_year", "must be between 1 and %d, got %d", maxDaysPerYear, daysOfYear)
		}
		return float64(hoursPerDay) / 24 * float64(daysOfYear) / daysPerYear, nil
	default:
		return 0, invalid("operating_days_per_week", "an operating schedule in days per week or days per year is required")
	}
}

// Compute runs one simulation. It returns either a complete result or an *InvalidInputError.
func Compute(in SimulationInput, city *CityParameters, tariffs TariffConstants) (*SimulationResult, error) {
	if math.IsNaN(in.CapacityKW) || math.IsInf(in.CapacityKW, 0) || in.CapacityKW <= 0 {
		return nil, invalid("capacity_kw", "must be a finite number greater than 0")
	}
	if city == nil {
		return nil, invalid("city_id", "city parameters are required")
	}
	if math.IsNaN(city.ModuleCapacityKW) || math.IsInf(city.ModuleCapacityKW, 0) || city.ModuleCapacityKW <= 0 {
		return nil, invalid("city_id", "city module capacity must be greater than 0")
	}

	factor, err := OperatingFactor(in.OperatingHoursPerDay, in.OperatingDaysPerWeek, in.OperatingDaysPerYear)
	if err != nil {
		return nil, err
	}

	// Partial modules are not sold: always round up.
	ratio := in.CapacityKW / city.ModuleCapacityKW
	if math.IsInf(ratio, 0) || math.Ceil(ratio) > maxModuleCount {
		return nil, invalid("capacity_kw", "requires more modules than can be quoted")
	}
	modules := max(int(math.Ceil(ratio)), 1)
	// The product can land a few ULPs under the request; installed capacity never may.
	installed := max(float64(modules)*city.ModuleCapacityKW, in.CapacityKW)

	dryYearly := SafeNumber(city.YearlyConsumptionDryCoolerLiters * ratio * factor)
	towerYearly := SafeNumber(city.YearlyConsumptionTowerLiters * ratio * factor)

	dryNominal := SafeNumber(city.NominalWaterFlowLPerMin * ratio)
	towerNominal := dryNominal

	res := &SimulationResult{
		CapacityRatio:   SafeNumber(ratio),
		OperatingFactor: SafeNumber(factor),
		DryCooler: DryCoolerProjection{
			Modules:          modules,
			TotalCapacityKW:  SafeNumber(installed),
			NominalWaterFlow: dryNominal,
			EvaporationFlow:  SafeNumber(dryNominal * city.EvaporationFanLogicPercent / 100),
			Consumption:      spread(dryYearly),
			AnnualCost:       annualCost(dryYearly, tariffs),
		},
		Tower: TowerProjection{
			NominalWaterFlow: towerNominal,
			EvaporationFlow:  towerNominal,
			Consumption:      spread(towerYearly),
			AnnualCost:       annualCost(towerYearly, tariffs),
		},
	}
	res.Comparison = compare(res, tariffs)

	return res, nil
}

func spread(yearly float64) Consumption {
	return Consumption{
		Hourly:  SafeNumber(yearly / hoursPerYear),
		Daily:   SafeNumber(yearly / daysPerYear),
		Monthly: SafeNumber(yearly / monthsPerYear),
		Yearly:  SafeNumber(yearly),
	}
}

func annualCost(yearlyLiters float64, t TariffConstants) float64 {
	return SafeNumber(yearlyLiters / litersPerM3 * t.WaterPricePerM3 * (1 + t.SewageTariffPercent/100))
}

func compare(res *SimulationResult, t TariffConstants) Comparison {
	var c Comparison

	towerYearly := res.Tower.Consumption.Yearly
	c.YearlyDifferenceLiters = SafeNumber(towerYearly - res.DryCooler.Consumption.Yearly)
	if towerYearly != 0 {
		c.YearlyDifferencePercent = SafeNumber(c.YearlyDifferenceLiters / towerYearly * 100)
	}

	// At least one module of install and maintenance is always charged.
	billed := float64(max(res.DryCooler.Modules, 1))

	c.AnnualSavingsCurrency = SafeNumber(res.Tower.AnnualCost - res.DryCooler.AnnualCost)
	c.ImplementationCost = SafeNumber(t.InstallBaseCost * billed)
	c.AnnualMaintenanceCost = SafeNumber(t.MaintenanceAnnualCostBase * billed)
	c.NetAnnualSavings = SafeNumber(c.AnnualSavingsCurrency - c.AnnualMaintenanceCost)

	c.PaysBack = c.NetAnnualSavings > 0
	if c.PaysBack {
		c.PaybackYears = SafeNumber(c.ImplementationCost / c.NetAnnualSavings)
	} else {
		// Sentinel only. PaysBack is false and callers must not treat this as a projection.
		c.PaybackYears = SafeNumber(t.EquipmentLifetimeYears * 2)
	}

	c.TotalLifetimeSavings = SafeNumber(c.NetAnnualSavings * t.EquipmentLifetimeYears)
	if c.ImplementationCost > 0 {
		c.ROIPercent = SafeNumber(c.TotalLifetimeSavings / c.ImplementationCost * 100)
	}

	return c
}
