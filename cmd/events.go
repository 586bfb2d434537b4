/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vente/apiserver/internal/mq"
	"github.com/vente/apiserver/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect catalog events",
}

// eventsTailCmd prints catalog events as they are published.
var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print catalog events from the configured broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bus, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if bus == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer bus.Close()

		out := cmd.OutOrStdout()
		err = bus.Subscribe(ctx, cfg.MQ.Channel, func(_ context.Context, msg mq.Message) error {
			var event types.CatalogEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				logger.WithError(err).WithField("message_id", msg.ID).Warn("skip malformed catalog event")
				return nil
			}
			_, err := fmt.Fprintf(out, "%s\t%s\tproduct=%d\tcategory=%d\tcategories=%v\n",
				event.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), event.Type, event.ProductID, event.CategoryID, event.CategoryIDs)
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
