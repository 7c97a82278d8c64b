package models

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"water-savings-platform/internal/calculator"
)

// Lead is the prospect contact captured at the end of the wizard
type Lead struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Company   string    `json:"company" db:"company"`
	Role      string    `json:"role" db:"role"`
	CityID    int64     `json:"city_id" db:"city_id"`
	Consent   bool      `json:"consent" db:"consent"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Simulation is the persisted calculation attached to a lead. The summary columns
// duplicate result fields so the back-office can list and export without decoding JSON.
type Simulation struct {
	ID                     int64                                   `json:"id" db:"id"`
	LeadID                 uuid.UUID                               `json:"lead_id" db:"lead_id"`
	CityID                 int64                                   `json:"city_id" db:"city_id"`
	Input                  JSONColumn[calculator.SimulationInput]  `json:"input" db:"input"`
	Tariffs                JSONColumn[calculator.TariffConstants]  `json:"tariffs" db:"tariffs"`
	Result                 JSONColumn[calculator.SimulationResult] `json:"result" db:"result"`
	Modules                int                                     `json:"modules" db:"modules"`
	YearlyDifferenceLiters float64                                 `json:"yearly_difference_liters" db:"yearly_difference_liters"`
	AnnualSavingsCurrency  float64                                 `json:"annual_savings_currency" db:"annual_savings_currency"`
	NetAnnualSavings       float64                                 `json:"net_annual_savings" db:"net_annual_savings"`
	PaysBack               bool                                    `json:"pays_back" db:"pays_back"`
	PaybackYears           float64                                 `json:"payback_years" db:"payback_years"`
	CreatedAt              time.Time                               `json:"created_at" db:"created_at"`
}

// NewSimulation bundles a computed result for persistence
func NewSimulation(in calculator.SimulationInput, tariffs calculator.TariffConstants, res *calculator.SimulationResult) *Simulation {
	return &Simulation{
		CityID:                 in.CityID,
		Input:                  JSONColumn[calculator.SimulationInput]{V: in},
		Tariffs:                JSONColumn[calculator.TariffConstants]{V: tariffs},
		Result:                 JSONColumn[calculator.SimulationResult]{V: *res},
		Modules:                res.DryCooler.Modules,
		YearlyDifferenceLiters: res.Comparison.YearlyDifferenceLiters,
		AnnualSavingsCurrency:  res.Comparison.AnnualSavingsCurrency,
		NetAnnualSavings:       res.Comparison.NetAnnualSavings,
		PaysBack:               res.Comparison.PaysBack,
		PaybackYears:           res.Comparison.PaybackYears,
	}
}

// LeadRecord is a lead with its simulation, as returned by the back-office
type LeadRecord struct {
	Lead       Lead        `json:"lead"`
	CityName   string      `json:"city_name"`
	Simulation *Simulation `json:"simulation,omitempty"`
}

// LeadSummary is one row of the back-office lead list
type LeadSummary struct {
	Lead
	CityName               string   `json:"city_name" db:"city_name"`
	Modules                *int     `json:"modules,omitempty" db:"modules"`
	YearlyDifferenceLiters *float64 `json:"yearly_difference_liters,omitempty" db:"yearly_difference_liters"`
	AnnualSavingsCurrency  *float64 `json:"annual_savings_currency,omitempty" db:"annual_savings_currency"`
	PaysBack               *bool    `json:"pays_back,omitempty" db:"pays_back"`
	PaybackYears           *float64 `json:"payback_years,omitempty" db:"payback_years"`
}

var phonePattern = regexp.MustCompile(`^[0-9+()\-.\s]{7,20}$`)

// Normalize trims contact fields and lower-cases the email
func (l *Lead) Normalize() {
	l.Name = strings.TrimSpace(l.Name)
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	l.Phone = strings.TrimSpace(l.Phone)
	l.Company = strings.TrimSpace(l.Company)
	l.Role = strings.TrimSpace(l.Role)
	l.Source = strings.TrimSpace(l.Source)
	if l.Source == "" {
		l.Source = "wizard"
	}
}

// Validate checks the contact data captured by the wizard
func (l *Lead) Validate() error {
	if l.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if l.Email == "" {
		return &ValidationError{Field: "email", Message: "is required"}
	}
	if addr, err := mail.ParseAddress(l.Email); err != nil || addr.Address != l.Email {
		return &ValidationError{Field: "email", Value: l.Email, Message: "is not a valid email address"}
	}
	if l.Phone != "" && !phonePattern.MatchString(l.Phone) {
		return &ValidationError{Field: "phone", Value: l.Phone, Message: "is not a valid phone number"}
	}
	if !l.Consent {
		return &ValidationError{Field: "consent", Message: "contact consent is required"}
	}
	return nil
}
