package models

import "time"

// CityLeadStatistics aggregates the leads captured for one city
type CityLeadStatistics struct {
	CityID                      int64    `json:"city_id" db:"city_id"`
	CityName                    string   `json:"city_name" db:"city_name"`
	State                       string   `json:"state" db:"state"`
	LeadCount                   int      `json:"lead_count" db:"lead_count"`
	SimulationCount             int      `json:"simulation_count" db:"simulation_count"`
	NonPayingCount              int      `json:"non_paying_count" db:"non_paying_count"`
	TotalModules                int      `json:"total_modules" db:"total_modules"`
	TotalYearlyDifferenceLiters float64  `json:"total_yearly_difference_liters" db:"total_yearly_difference_liters"`
	TotalAnnualSavingsCurrency  float64  `json:"total_annual_savings_currency" db:"total_annual_savings_currency"`
	AvgPaybackYears             *float64 `json:"avg_payback_years,omitempty" db:"avg_payback_years"`
}

// LeadStatistics is the back-office pipeline summary: totals plus the per-city breakdown
type LeadStatistics struct {
	LeadCount                   int                   `json:"lead_count"`
	SimulationCount             int                   `json:"simulation_count"`
	NonPayingCount              int                   `json:"non_paying_count"`
	TotalModules                int                   `json:"total_modules"`
	TotalYearlyDifferenceLiters float64               `json:"total_yearly_difference_liters"`
	TotalAnnualSavingsCurrency  float64               `json:"total_annual_savings_currency"`
	AvgPaybackYears             *float64              `json:"avg_payback_years,omitempty"`
	ByCity                      []*CityLeadStatistics `json:"by_city"`
	GeneratedAt                 time.Time             `json:"generated_at"`
}

// Summarize folds per-city rows into totals. The overall payback average only covers
// simulations that pay back and is weighted by how many of those each city has.
func Summarize(rows []*CityLeadStatistics, now time.Time) *LeadStatistics {
	stats := &LeadStatistics{
		ByCity:      rows,
		GeneratedAt: now,
	}
	if stats.ByCity == nil {
		stats.ByCity = []*CityLeadStatistics{}
	}

	var paybackSum float64
	var paybackWeight int
	for _, row := range rows {
		stats.LeadCount += row.LeadCount
		stats.SimulationCount += row.SimulationCount
		stats.NonPayingCount += row.NonPayingCount
		stats.TotalModules += row.TotalModules
		stats.TotalYearlyDifferenceLiters += row.TotalYearlyDifferenceLiters
		stats.TotalAnnualSavingsCurrency += row.TotalAnnualSavingsCurrency
		paying := row.SimulationCount - row.NonPayingCount
		if row.AvgPaybackYears != nil && paying > 0 {
			paybackSum += *row.AvgPaybackYears * float64(paying)
			paybackWeight += paying
		}
	}

	if paybackWeight > 0 {
		avg := paybackSum / float64(paybackWeight)
		stats.AvgPaybackYears = &avg
	}

	return stats
}
