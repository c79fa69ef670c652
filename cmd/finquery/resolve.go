package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/finquery/internal/app"
	"github.com/ternarybob/finquery/internal/handlers"
	"github.com/ternarybob/finquery/internal/models"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [question]",
	Short: "Resolve one question and print the structured intent",
	Long:  `Builds the alias index from the configured universe, resolves the question and prints the intent. Relative periods need --year (and optionally --quarter).`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

var (
	resolveYear    int
	resolveQuarter int
	resolveJSON    bool
	resolveNumbers bool
)

func init() {
	resolveCmd.Flags().IntVar(&resolveYear, "year", 0, "Anchor year for relative periods")
	resolveCmd.Flags().IntVar(&resolveQuarter, "quarter", 0, "Anchor quarter for relative periods (1-4)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the intent as JSON")
	resolveCmd.Flags().BoolVar(&resolveNumbers, "numbers", false, "Also attribute numbers in the question to metrics")
}

func runResolve(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	anchor := models.PeriodAnchor{Year: resolveYear, Quarter: resolveQuarter}
	if err := handlers.ValidateAnchor(anchor); err != nil {
		return err
	}

	application, err := app.New(config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	intent, err := application.IntentService.Resolve(context.Background(), question, anchor)
	if err != nil {
		return err
	}

	var numbers []models.NumberAttribution
	if resolveNumbers {
		// truncation is already reported in the intent's warnings
		numbers, _ = application.Matcher.AttributeNumbers(question)
	}

	out := cmd.OutOrStdout()
	if resolveJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if resolveNumbers {
			return enc.Encode(map[string]interface{}{"intent": intent, "numbers": numbers})
		}
		return enc.Encode(intent)
	}

	printIntent(out, intent)
	if resolveNumbers {
		printNumbers(out, numbers)
	}
	return nil
}

func printIntent(w io.Writer, intent *models.StructuredIntent) {
	entities := intent.Entities()
	if len(entities) == 0 {
		fmt.Fprintln(w, "Entities: (none)")
	} else {
		fmt.Fprintln(w, "Entities:")
		for _, e := range entities {
			fmt.Fprintf(w, "  %-8s %-8s %.2f  %q\n", e.Ticker, e.Method, e.Confidence, e.MatchedPhrase)
		}
	}

	if metrics := intent.Metrics(); len(metrics) == 0 {
		fmt.Fprintln(w, "Metrics:  (none)")
	} else {
		fmt.Fprintf(w, "Metrics:  %s\n", strings.Join(metrics, ", "))
	}

	if p := intent.Period(); p == nil {
		fmt.Fprintln(w, "Period:   (none)")
	} else {
		basis := "fiscal"
		if !p.NormalizeToFiscal {
			basis = "calendar"
		}
		fmt.Fprintf(w, "Period:   %s %s..%s (%s)\n", p.Kind, p.StartPeriod, p.EndPeriod, basis)
	}

	if !intent.HasWarnings() {
		return
	}
	for _, warning := range intent.Warnings() {
		fmt.Fprintf(w, "Warning:  %s\n", warning)
	}
}

func printNumbers(w io.Writer, numbers []models.NumberAttribution) {
	for _, n := range numbers {
		metric := n.MetricID
		if metric == "" {
			metric = "(unattributed)"
		}
		unit := ""
		if n.Percent {
			unit = "%"
		}
		fmt.Fprintf(w, "Number:   %s%s -> %s\n", n.Raw, unit, metric)
	}
}
