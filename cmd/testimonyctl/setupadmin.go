package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/system/accounts"
	"github.com/dalemusser/testimonyhub/internal/app/system/adminsetup"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSetupAdminCmd() *cobra.Command {
	var (
		conn   connFlags
		params adminsetup.Params
	)
	cfg := appConfig()

	cmd := &cobra.Command{
		Use:   "setup-admin",
		Short: "Create or promote the first administrator",
		Long: `Makes sure an account with the given phone exists and holds a superadmin
membership. An existing account keeps its password and is promoted; a new
account needs --password. Running it again changes nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.Phone == "" {
				return errors.New("--phone is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, db, err := conn.connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			svc := accounts.New(client, db, cfg.Phones(), logger)
			res, err := adminsetup.EnsureFirstAdmin(ctx, svc, params, logger)
			if err != nil {
				return err
			}

			switch {
			case res.Created:
				fmt.Fprintf(cmd.OutOrStdout(), "created administrator %s (%s)\n", res.User.ID.Hex(), res.User.Phone)
			case res.Promoted:
				fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s) to administrator\n", res.User.ID.Hex(), res.User.Phone)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is already an administrator\n", res.User.ID.Hex(), res.User.Phone)
			}
			logger.Debug("setup-admin finished", zap.String("user_id", res.User.ID.Hex()))
			return nil
		},
	}
	conn.register(cmd)
	cmd.Flags().StringVar(&params.Phone, "phone", cfg.SuperAdminPhone, "administrator phone number")
	cmd.Flags().StringVar(&params.Email, "email", cfg.SuperAdminEmail, "administrator email (defaults to <digits>@phone.user)")
	cmd.Flags().StringVar(&params.Password, "password", cfg.SuperAdminPassword, "password for a new account")
	cmd.Flags().StringVar(&params.FirstName, "name", "Admin", "first name for a new account")
	return cmd
}
