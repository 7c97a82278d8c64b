package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/catalog"
	"water-savings-platform/internal/services"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type runOptions struct {
	catalogPath string
	inputPath   string
	city        string
	capacityKW  float64
	hoursPerDay int
	daysPerWeek int
	daysPerYear int
	asJSON      bool
}

func newRootCmd() *cobra.Command {
	var catalogPath string

	root := &cobra.Command{
		Use:          "simulate",
		Short:        "Offline DryCooler versus cooling tower savings calculator",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&catalogPath, "catalog", os.Getenv("CATALOG_PATH"), "YAML catalog of cities and constants (default: built-in)")

	root.AddCommand(runCmd(&catalogPath), citiesCmd(&catalogPath))
	return root
}

func runCmd(catalogPath *string) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Size an installation and compare it against a cooling tower",
		Example: `  simulate run --city "São Paulo" --capacity 500 --hours 24 --days-per-week 7
  simulate run --input scenario.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.catalogPath = *catalogPath
			return runSimulation(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputPath, "input", "", "YAML file with a simulation input; flags override its fields")
	cmd.Flags().StringVar(&opts.city, "city", "", "City id, name, or Name/State")
	cmd.Flags().Float64Var(&opts.capacityKW, "capacity", 0, "Required cooling capacity in kW")
	cmd.Flags().IntVar(&opts.hoursPerDay, "hours", 0, "Operating hours per day (1-24)")
	cmd.Flags().IntVar(&opts.daysPerWeek, "days-per-week", 0, "Operating days per week (1-7)")
	cmd.Flags().IntVar(&opts.daysPerYear, "days-per-year", 0, "Operating days per year (1-365)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full simulation as JSON")

	return cmd
}

func citiesCmd(catalogPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List the cities in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.LoadOrDefault(*catalogPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%4s  %-24s %-5s %8s %s\n", "ID", "CITY", "STATE", "TEMP °C", "ACTIVE")
			for _, c := range cat.Cities {
				fmt.Fprintf(out, "%4d  %-24s %-5s %8.1f %t\n", c.ID, c.Name, c.State, c.AverageTemperatureC, c.Active)
			}
			return nil
		},
	}
}

func runSimulation(ctx context.Context, out io.Writer, opts *runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cat, err := catalog.LoadOrDefault(opts.catalogPath)
	if err != nil {
		return err
	}

	in, err := buildInput(cat, opts)
	if err != nil {
		return err
	}

	logger := logging.NewStructuredLogger("water-savings-cli", "1.0.0", logging.WarnLevel)
	logger.SetOutput(os.Stderr)
	svc := services.NewSimulationService(cat, cat, logger, metrics.NewCollectorWithRegistry("water_savings_cli", prometheus.NewRegistry()))

	sim, err := svc.Simulate(ctx, in)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sim)
	}

	printSimulation(out, sim)
	return nil
}

func buildInput(cat *catalog.Catalog, opts *runOptions) (calculator.SimulationInput, error) {
	var in calculator.SimulationInput

	if opts.inputPath != "" {
		data, err := os.ReadFile(opts.inputPath)
		if err != nil {
			return in, fmt.Errorf("failed to read input file: %w", err)
		}
		if err := yaml.Unmarshal(data, &in); err != nil {
			return in, fmt.Errorf("failed to parse input file: %w", err)
		}
	}

	if opts.city != "" {
		city, err := cat.Find(opts.city)
		if err != nil {
			return in, err
		}
		in.CityID = city.ID
	}
	if opts.capacityKW != 0 {
		in.CapacityKW = opts.capacityKW
	}
	if opts.hoursPerDay != 0 {
		in.OperatingHoursPerDay = opts.hoursPerDay
	}
	// A schedule flag replaces whatever schedule the file had.
	if opts.daysPerWeek != 0 {
		in.OperatingDaysPerWeek = opts.daysPerWeek
		in.OperatingDaysPerYear = 0
	}
	if opts.daysPerYear != 0 {
		in.OperatingDaysPerYear = opts.daysPerYear
		if opts.daysPerWeek == 0 {
			in.OperatingDaysPerWeek = 0
		}
	}

	return in, nil
}

func printSimulation(out io.Writer, sim *services.Simulation) {
	rule := strings.Repeat("═", 64)
	res := sim.Result
	cmp := res.Comparison

	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "WATER SAVINGS SIMULATION - %s/%s\n", sim.City.Name, sim.City.State)
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Capacity requested:     %.1f kW\n", sim.Input.CapacityKW)
	fmt.Fprintf(out, "Operating factor:       %.3f\n", res.OperatingFactor)
	fmt.Fprintf(out, "DryCooler modules:      %d (%.1f kW installed)\n", res.DryCooler.Modules, res.DryCooler.TotalCapacityKW)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%-22s %18s %18s\n", "Consumption (L)", "DryCooler", "Cooling tower")
	fmt.Fprintf(out, "%-22s %18.1f %18.1f\n", "Hourly", res.DryCooler.Consumption.Hourly, res.Tower.Consumption.Hourly)
	fmt.Fprintf(out, "%-22s %18.1f %18.1f\n", "Daily", res.DryCooler.Consumption.Daily, res.Tower.Consumption.Daily)
	fmt.Fprintf(out, "%-22s %18.1f %18.1f\n", "Monthly", res.DryCooler.Consumption.Monthly, res.Tower.Consumption.Monthly)
	fmt.Fprintf(out, "%-22s %18.1f %18.1f\n", "Yearly", res.DryCooler.Consumption.Yearly, res.Tower.Consumption.Yearly)
	fmt.Fprintf(out, "%-22s %18.2f %18.2f\n", "Annual water cost", res.DryCooler.AnnualCost, res.Tower.AnnualCost)
	fmt.Fprintln(out)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "SAVINGS")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Water saved per year:   %.1f L (%.1f%%)\n", cmp.YearlyDifferenceLiters, cmp.YearlyDifferencePercent)
	fmt.Fprintf(out, "Annual savings:         %.2f\n", cmp.AnnualSavingsCurrency)
	fmt.Fprintf(out, "Implementation cost:    %.2f\n", cmp.ImplementationCost)
	fmt.Fprintf(out, "Annual maintenance:     %.2f\n", cmp.AnnualMaintenanceCost)
	fmt.Fprintf(out, "Net annual savings:     %.2f\n", cmp.NetAnnualSavings)
	if cmp.PaysBack {
		fmt.Fprintf(out, "Payback:                %.1f years\n", cmp.PaybackYears)
	} else {
		fmt.Fprintf(out, "Payback:                does not pay back within %.0f years\n", cmp.PaybackYears)
	}
	fmt.Fprintf(out, "Lifetime savings:       %.2f\n", cmp.TotalLifetimeSavings)
	fmt.Fprintf(out, "ROI:                    %.1f%%\n", cmp.ROIPercent)
}
