// Package report renders comparison results for terminals.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/bher20/eratecompare/internal/migrate"
	"github.com/bher20/eratecompare/internal/rates"
	"github.com/bher20/eratecompare/internal/tariff"
)

var hundred = decimal.NewFromInt(100)

// Money converts an amount in minor units to major units rounded to two
// places, e.g. 12345.6 -> "123.46".
func Money(minor float64) string {
	return decimal.NewFromFloat(minor).Div(hundred).StringFixed(2)
}

// KWh formats an energy amount to three places.
func KWh(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

// WriteComparison prints one row per costing, cheapest first, followed by
// any plans that could not be costed.
func WriteComparison(w io.Writer, res *rates.ComparisonResult) error {
	fmt.Fprintf(w, "Scenario: %s  Window: %s to %s (%d days)\n\n",
		scenarioName(res.Scenario),
		res.Window.From.Format("2006-01-02"), res.Window.To.Format("2006-01-02"), res.Window.Days())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tSupplier\tPlan\tBuy\tSell\tNet\tBonus\tkWh\t")
	for _, c := range res.Costings {
		total := decimal.Zero
		for _, b := range c.Breakdown {
			total = total.Add(decimal.NewFromFloat(b.KWh))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			c.Rank, c.Supplier, c.Plan,
			Money(c.Buy), Money(c.Sell), Money(c.Net), Money(c.Bonus*100), total.StringFixed(3))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.Rejected) > 0 {
		fmt.Fprintln(w, "\nNot costed:")
		for _, p := range res.Rejected {
			fmt.Fprintf(w, "  %s/%s: %s\n", p.Supplier, p.Plan, p.Validation.Reason)
		}
	}
	return nil
}

// WriteBreakdown prints the kWh and cost per unit price of one costing.
func WriteBreakdown(w io.Writer, c rates.CostingResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Price\tkWh\tCost\t")
	for _, b := range c.Breakdown {
		cost := decimal.NewFromFloat(b.Price).Mul(decimal.NewFromFloat(b.KWh))
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", tariff.RateLabel(b.Price), KWh(b.KWh), cost.Div(hundred).StringFixed(2))
	}
	return tw.Flush()
}

// WriteMigrations prints one row per schema version.
func WriteMigrations(w io.Writer, list []migrate.State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Version\tName\tState\tApplied at")
	for _, s := range list {
		state, at := "pending", "-"
		if s.Applied {
			state, at = "applied", s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, state, at)
	}
	return tw.Flush()
}

func scenarioName(s tariff.Scenario) string {
	switch {
	case s.Name != "":
		return s.Name
	case s.ID != "":
		return s.ID
	}
	return "default"
}
