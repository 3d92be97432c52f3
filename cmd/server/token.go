package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/config"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

// newTokenCmd mints an identity token, for local development against the API
func newTokenCmd() *cobra.Command {
	var identity models.Identity

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an identity token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !identity.Valid() {
				return errors.New("--uid and --email are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}

			token, err := auth.NewTokenVerifier(cfg.JWTSecret, cfg.TokenTTL).Issue(identity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&identity.UID, "uid", "", "user id")
	flags.StringVar(&identity.Email, "email", "", "user email")
	flags.StringVar(&identity.Department, "department", "", "user department")
	flags.StringVar(&identity.FullName, "name", "", "display name")
	return cmd
}
