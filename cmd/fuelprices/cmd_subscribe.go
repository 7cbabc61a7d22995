package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/notifier"
)

func subscribeCmd() *cobra.Command {
	var sub notifier.Subscription
	var typeStr, target string
	var list bool

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Register a price change subscription in the hot store",
		Long:  "Appends a Discord or Telegram subscription to the subscription list kept in the hot store, or prints the list with --list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.HotStore.Driver == "memory" {
				return errors.New("subscribe needs a persistent hot store, the memory driver forgets the list when the command exits; set hot_store.driver to redis, postgres, mysql or sqlite")
			}

			logger := setupLogger()
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a)

			source := notifier.NewHotStoreSource(a.hot)
			subs, err := source.Subscriptions(ctx)
			if err != nil {
				return err
			}

			if list {
				for _, s := range subs {
					fmt.Printf("%s\t%s\t%s%s\n", s.FuelType, s.Target, s.URL, s.ChatID)
				}
				return nil
			}

			fuelType, ok := models.ParseFuelType(typeStr)
			if !ok {
				return fmt.Errorf("unknown fuel type %q", typeStr)
			}
			sub.FuelType = fuelType
			sub.Target = notifier.Target(target)

			if err := source.Save(ctx, append(subs, sub)); err != nil {
				return fmt.Errorf("saving subscription: %w", err)
			}

			logger.Info().
				Str("fuel_type", string(sub.FuelType)).
				Str("target", string(sub.Target)).
				Int("subscriptions", len(subs)+1).
				Msg("subscription saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&typeStr, "type", "unleaded95", "Fuel type (unleaded95, octane100, diesel)")
	cmd.Flags().StringVar(&target, "target", "discord", "Notification target (discord, telegram)")
	cmd.Flags().StringVar(&sub.URL, "url", "", "Discord webhook URL")
	cmd.Flags().StringVar(&sub.ChatID, "chat-id", "", "Telegram chat id")
	cmd.Flags().StringVar(&sub.BotToken, "bot-token", "", "Telegram bot token")
	cmd.Flags().BoolVar(&list, "list", false, "Print the stored subscriptions")

	return cmd
}
