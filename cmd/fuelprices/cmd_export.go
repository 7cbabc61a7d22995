package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelprices/internal/export"
	"github.com/andygrunwald/fuelprices/internal/models"
)

func exportCmd() *cobra.Command {
	var typeStr, fromStr, toStr, csvPath, pngPath string
	var maxPoints int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the price history as CSV and PNG chart",
		Long:  "Exports the archived price history of a fuel type over a date range as CSV and/or a PNG line chart.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			if csvPath == "" && pngPath == "" {
				return fmt.Errorf("at least one of --csv or --png is required")
			}

			fuelType, ok := models.ParseFuelType(typeStr)
			if !ok {
				return fmt.Errorf("unknown fuel type %q", typeStr)
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a)

			to := a.lookup.Today()
			if toStr != "" {
				if to, err = models.ParseDay(toStr); err != nil {
					return fmt.Errorf("parsing --to date: %w", err)
				}
			}
			from := to.AddDays(-365)
			if fromStr != "" {
				if from, err = models.ParseDay(fromStr); err != nil {
					return fmt.Errorf("parsing --from date: %w", err)
				}
			}

			history, err := a.lookup.Range(ctx, fuelType, from, to)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}

			logger.Info().
				Str("fuel_type", string(fuelType)).
				Str("from", from.String()).
				Str("to", to.String()).
				Int("records", len(history)).
				Msg("exporting price history")

			if csvPath != "" {
				if err := export.WriteCSVFile(csvPath, history); err != nil {
					return fmt.Errorf("writing CSV: %w", err)
				}
				logger.Info().Str("path", csvPath).Msg("wrote CSV")
			}
			if pngPath != "" {
				if err := export.WritePNGFile(pngPath, fuelType, export.Downsample(history, maxPoints)); err != nil {
					return fmt.Errorf("writing PNG: %w", err)
				}
				logger.Info().Str("path", pngPath).Msg("wrote PNG")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&typeStr, "type", "unleaded95", "Fuel type (unleaded95, octane100, diesel)")
	cmd.Flags().StringVar(&fromStr, "from", "", "Start date (YYYY-MM-DD, defaults to one year before --to)")
	cmd.Flags().StringVar(&toStr, "to", "", "End date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the history as CSV to this path")
	cmd.Flags().StringVar(&pngPath, "png", "", "Render the history as PNG chart to this path")
	cmd.Flags().IntVar(&maxPoints, "max-points", 2000, "Maximum number of chart points")

	return cmd
}
