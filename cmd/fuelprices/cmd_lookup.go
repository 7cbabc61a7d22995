package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelprices/internal/localization"
	"github.com/andygrunwald/fuelprices/internal/lookup"
	"github.com/andygrunwald/fuelprices/internal/models"
)

func lookupCmd() *cobra.Command {
	var typeStr, dateStr, lang string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up the price of a fuel type on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			ctx := cmd.Context()

			fuelType, ok := models.ParseFuelType(typeStr)
			if !ok {
				return fmt.Errorf("unknown fuel type %q", typeStr)
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a)

			day := a.lookup.Today()
			if dateStr != "" {
				day, err = models.ParseDay(dateStr)
				if err != nil {
					return fmt.Errorf("parsing --date: %w", err)
				}
			}

			language := localization.ParseLanguage(lang)
			prices, err := a.lookup.GetPrices(ctx, fuelType, day)
			if errors.Is(err, lookup.ErrNotFound) {
				fmt.Println(localization.ErrorText(language))
				return nil
			}
			if err != nil {
				return fmt.Errorf("looking up prices: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(prices)
			}
			fmt.Println(localization.Text(*prices, fuelType, language))
			return nil
		},
	}

	cmd.Flags().StringVar(&typeStr, "type", "unleaded95", "Fuel type (unleaded95, octane100, diesel)")
	cmd.Flags().StringVar(&dateStr, "date", "", "Date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&lang, "lang", "en", "Answer language (en, da)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the records as JSON")

	return cmd
}
