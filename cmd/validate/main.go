// Command validate checks a fleet file before it is deployed: every model
// must build a valid turbine spec, and power curves must span the
// producing range without exceeding the nameplate rating. It prints the derived
// geometry of each turbine so the operator can sanity-check the numbers.
//
// Usage:
//
//	go run ./cmd/validate -fleet fleet.yaml
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/couchcryptid/wind-yield-etl/internal/fleet"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var (
	pass = color.New(color.FgGreen, color.Bold).SprintFunc()
	fail = color.New(color.FgRed, color.Bold).SprintFunc()
	head = color.New(color.FgCyan).SprintFunc()
)

func main() {
	fleetPath := flag.String("fleet", "fleet.yaml", "path to the fleet file")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	os.Exit(run(*fleetPath))
}

func run(path string) int {
	fmt.Println(head("=== Fleet Validation ==="))
	fmt.Println()

	fl, err := fleet.Load(path)
	if err != nil {
		fmt.Printf("  %-42s %s\n", "load "+path, fail("FAIL"))
		fmt.Printf("\n  %v\n", err)
		return 1
	}

	printTurbines(fl)

	phases := []*phase{
		validateCoverage(fl),
		validateCurves(fl),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := pass("PASS")
		if !p.passed() {
			status = fail(fmt.Sprintf("FAIL (%d errors)", len(p.errors)))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Printf("\n%s %d turbines\n", pass("All validations passed."), len(fl.Turbines))
		return 0
	}
	fmt.Println("\n" + fail("Validation FAILED."))
	return 1
}

func printTurbines(fl *fleet.Fleet) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMODEL\tLAT\tLON\tAREA m²\tTIP min m/s\tTIP max m/s\tRATED kW")
	for _, t := range fl.Turbines {
		s := t.Spec
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.1f\t%.2f\t%.2f\t%.0f\n",
			t.Name, s.Model, s.Latitude, s.Longitude, s.Area(), s.MinTipSpeed(), s.MaxTipSpeed(), s.RatedPowerKW)
	}
	tw.Flush() //nolint:errcheck // stdout
}

func validateCoverage(fl *fleet.Fleet) *phase {
	p := &phase{name: "Power curves cover cut-in to rated speed"}
	for _, t := range fl.Turbines {
		curve := t.Spec.PowerCurve
		if len(curve) == 0 {
			continue
		}
		if first := curve[0].WindSpeed; first > t.Spec.CutInSpeed {
			p.errorf("%s: curve starts at %.1f m/s, above cut-in %.1f m/s", t.Name, first, t.Spec.CutInSpeed)
		}
		if last := curve[len(curve)-1].WindSpeed; last < t.Spec.RatedWindSpeed {
			p.errorf("%s: curve ends at %.1f m/s, below rated %.1f m/s", t.Name, last, t.Spec.RatedWindSpeed)
		}
	}
	return p
}

func validateCurves(fl *fleet.Fleet) *phase {
	p := &phase{name: "Power curves within rated power"}
	for _, t := range fl.Turbines {
		for _, pt := range t.Spec.PowerCurve {
			if pt.PowerKW > t.Spec.RatedPowerKW {
				p.errorf("%s: %.1f kW at %.1f m/s exceeds rated %.0f kW",
					t.Name, pt.PowerKW, pt.WindSpeed, t.Spec.RatedPowerKW)
			}
		}
	}
	return p
}
