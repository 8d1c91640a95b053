package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/padraicbc/riderapi/handlers"
	"github.com/padraicbc/riderapi/models"
)

// newAddUserCmd creates or updates an operator account.
func newAddUserCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update an API operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := handlers.HashPasswordForUser(username, password)
			if err != nil {
				return err
			}
			user := &models.User{
				Username:  username,
				Password:  hash,
				CreatedAt: time.Now().UTC(),
			}
			_, err = a.db.NewInsert().Model(user).
				On("CONFLICT (username) DO UPDATE SET password = EXCLUDED.password").
				Exec(cmd.Context())
			if err != nil {
				return fmt.Errorf("insert user: %w", err)
			}
			fmt.Fprintf(a.out, "user %q saved\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	cmd.Flags().StringVar(&password, "password", "", "plain-text password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
