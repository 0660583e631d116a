package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/pkg/database"
	"github.com/nailbook/booking-api/internal/pkg/jwt"
)

var errStaffInactive = errors.New("staff member not found or inactive")

func newStaffTokenCmd() *cobra.Command {
	var staffID string

	c := &cobra.Command{
		Use:   "staff-token",
		Short: "Issue an access token for a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(staffID)
			if err != nil {
				return fmt.Errorf("invalid --staff-id: %w", err)
			}

			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer database.ClosePostgres(db)

			repo := salon.NewRepository(db, cfg.DBQueryTimeout)
			member, err := repo.GetStaffMember(context.Background(), id)
			if err != nil {
				return err
			}

			token, err := issueStaffToken(jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL), member)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	c.Flags().StringVar(&staffID, "staff-id", "", "staff member id")
	_ = c.MarkFlagRequired("staff-id")
	return c
}

func issueStaffToken(tokens *jwt.Service, member *salon.StaffMember) (string, error) {
	if member == nil || !member.IsActive {
		return "", errStaffInactive
	}
	return tokens.GenerateStaffToken(member.ID, member.SalonID, member.Role)
}
