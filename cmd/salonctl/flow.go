package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nailbook/booking-api/internal/domain/bookingflow"
	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/pkg/database"
)

func newFlowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Inspect and configure salon booking flows",
	}
	cmd.AddCommand(newFlowNormalizeCmd())
	cmd.AddCommand(newFlowSetCmd())
	return cmd
}

func splitSteps(raw string) []string {
	var steps []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	return steps
}

func encodeFlow(raw string) ([]byte, error) {
	return json.Marshal(bookingflow.Normalize(splitSteps(raw)).Steps())
}

func newFlowNormalizeCmd() *cobra.Command {
	var steps string

	c := &cobra.Command{
		Use:   "normalize",
		Short: "Print the flow a step list normalizes to",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := encodeFlow(steps)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	c.Flags().StringVar(&steps, "steps", "", "comma separated steps")
	return c
}

func newFlowSetCmd() *cobra.Command {
	var slug, steps string

	c := &cobra.Command{
		Use:   "set",
		Short: "Normalize and store a salon's booking flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := encodeFlow(steps)
			if err != nil {
				return err
			}

			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer database.ClosePostgres(db)

			ctx := context.Background()
			repo := salon.NewRepository(db, cfg.DBQueryTimeout)
			s, err := repo.GetSalonBySlug(ctx, slug)
			if err != nil {
				return err
			}
			if s == nil {
				return salon.ErrSalonNotFound
			}
			if err := repo.UpdateBookingFlow(ctx, s.ID, data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.Slug, data)
			return nil
		},
	}

	c.Flags().StringVar(&slug, "salon", "", "salon slug")
	c.Flags().StringVar(&steps, "steps", "", "comma separated steps")
	_ = c.MarkFlagRequired("salon")
	_ = c.MarkFlagRequired("steps")
	return c
}
