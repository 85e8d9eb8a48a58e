package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/localbeat/server/internal/config"
	"github.com/localbeat/server/internal/events"
)

var (
	searchPostalCode string
	searchRadius     int
	searchUnit       string
	searchMonth      string
	searchTimeout    time.Duration
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one event search and print the results",
	Long: `Run the event query pipeline once against the configured provider and
print the sorted results as a table. Useful for checking the API key and
trying search parameters without starting the server.

Examples:
  # Events within 5 miles of Swampscott, MA this month
  server search --postal-code 01907

  # A wider search for a specific month
  server search --postal-code 02108 --radius 25 --month 2026-09`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchPostalCode, "postal-code", "", "postal code to search around (required)")
	searchCmd.Flags().IntVar(&searchRadius, "radius", 5, "search radius")
	searchCmd.Flags().StringVar(&searchUnit, "unit", "miles", "radius unit (miles or km)")
	searchCmd.Flags().StringVar(&searchMonth, "month", "", "target month as YYYY-MM (default: current month)")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 90*time.Second, "overall search deadline")
	_ = searchCmd.MarkFlagRequired("postal-code")
}

func runSearch(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := config.NewLogger(cfg.Logging)
	pipeline, _ := buildServices(cfg, logger)

	params := events.SearchParams{
		PostalCode: searchPostalCode,
		Radius:     searchRadius,
		Unit:       searchUnit,
	}
	if searchMonth != "" {
		year, month, err := events.ParseMonth(searchMonth)
		if err != nil {
			return err
		}
		params.Year = year
		params.Month = month
	} else {
		now := time.Now().UTC()
		params.Year = now.Year()
		params.Month = now.Month()
	}

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	records, err := pipeline.Fetch(ctx, params)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(out, "No events found for %s within %d %s in %d-%02d.\n",
			params.PostalCode, params.Radius, params.Unit, params.Year, params.Month)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tNAME\tVENUE\tPRICE\tURL")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			record.StartsAt.Format("Mon Jan 2 15:04"),
			record.Name,
			record.Venue,
			formatPrice(record),
			record.URL,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d events\n", len(records))
	return nil
}

func formatPrice(record events.EventRecord) string {
	if record.PriceMin == nil {
		return "-"
	}
	if record.Currency != "" {
		return fmt.Sprintf("%.2f %s", *record.PriceMin, record.Currency)
	}
	return fmt.Sprintf("%.2f", *record.PriceMin)
}
