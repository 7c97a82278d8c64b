package models

import (
	"encoding/json"
	"testing"

	"water-savings-platform/internal/calculator"
)

func TestLead_Validate(t *testing.T) {
	base := Lead{
		Name:    "Ana Souza",
		Email:   "Ana@Example.com ",
		Phone:   "+55 (11) 98765-4321",
		Consent: true,
	}

	tests := []struct {
		name      string
		mutate    func(*Lead)
		wantField string
	}{
		{name: "valid", mutate: func(*Lead) {}},
		{name: "missing name", mutate: func(l *Lead) { l.Name = "" }, wantField: "name"},
		{name: "missing email", mutate: func(l *Lead) { l.Email = "" }, wantField: "email"},
		{name: "bad email", mutate: func(l *Lead) { l.Email = "not-an-email" }, wantField: "email"},
		{name: "display name email rejected", mutate: func(l *Lead) { l.Email = "Ana <ana@example.com>" }, wantField: "email"},
		{name: "bad phone", mutate: func(l *Lead) { l.Phone = "call me" }, wantField: "phone"},
		{name: "empty phone allowed", mutate: func(l *Lead) { l.Phone = "" }},
		{name: "no consent", mutate: func(l *Lead) { l.Consent = false }, wantField: "consent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := base
			tt.mutate(&l)
			l.Normalize()
			err := l.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestLead_Normalize(t *testing.T) {
	l := Lead{Name: " Ana ", Email: " ANA@EXAMPLE.COM "}
	l.Normalize()

	if l.Name != "Ana" || l.Email != "ana@example.com" {
		t.Errorf("Normalize() = %q %q", l.Name, l.Email)
	}
	if l.Source != "wizard" {
		t.Errorf("Source = %q, want wizard", l.Source)
	}
}

func TestNewSimulation_Summary(t *testing.T) {
	in := calculator.SimulationInput{CapacityKW: 250, CityID: 7, OperatingHoursPerDay: 24, OperatingDaysPerWeek: 7}
	res := &calculator.SimulationResult{
		DryCooler:  calculator.DryCoolerProjection{Modules: 3},
		Comparison: calculator.Comparison{
			YearlyDifferenceLiters: 2000000,
			AnnualSavingsCurrency:  37800,
			NetAnnualSavings:       33300,
			PaysBack:               true,
			PaybackYears:           2.5,
		},
	}

	sim := NewSimulation(in, calculator.DefaultTariffs(), res)

	if sim.CityID != 7 || sim.Modules != 3 {
		t.Errorf("CityID/Modules = %d/%d, want 7/3", sim.CityID, sim.Modules)
	}
	if sim.YearlyDifferenceLiters != 2000000 || sim.AnnualSavingsCurrency != 37800 || sim.PaybackYears != 2.5 {
		t.Errorf("summary columns not copied: %+v", sim)
	}
	if sim.NetAnnualSavings != 33300 || !sim.PaysBack {
		t.Errorf("NetAnnualSavings/PaysBack = %v/%v, want 33300/true", sim.NetAnnualSavings, sim.PaysBack)
	}
}

func TestJSONColumn_ValueAndScan(t *testing.T) {
	col := JSONColumn[calculator.SimulationInput]{V: calculator.SimulationInput{CapacityKW: 120, CityID: 3}}

	v, err := col.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var scanned JSONColumn[calculator.SimulationInput]
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan([]byte) error = %v", err)
	}
	if scanned.V != col.V {
		t.Errorf("Scan([]byte) = %+v, want %+v", scanned.V, col.V)
	}

	if err := scanned.Scan(string(v.([]byte))); err != nil {
		t.Fatalf("Scan(string) error = %v", err)
	}
	if err := scanned.Scan(nil); err != nil || scanned.V.CapacityKW != 0 {
		t.Errorf("Scan(nil) = %+v, %v; want zero value", scanned.V, err)
	}
	if err := scanned.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestJSONColumn_MarshalsInline(t *testing.T) {
	sim := Simulation{Input: JSONColumn[calculator.SimulationInput]{V: calculator.SimulationInput{CapacityKW: 50}}}

	b, err := json.Marshal(sim)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	input, ok := decoded["input"].(map[string]interface{})
	if !ok {
		t.Fatalf("input = %T, want object", decoded["input"])
	}
	if input["capacity_kw"] != 50.0 {
		t.Errorf("input.capacity_kw = %v, want 50", input["capacity_kw"])
	}
}
