package main

import (
	"fmt"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/database"
	"github.com/campuslink/backend/internal/repository"
	"github.com/spf13/cobra"
)

var tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for an existing account",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		user, err := repository.NewUserRepository(db).GetUserByEmail(cmd.Context(), tokenEmail)
		if err != nil {
			return fmt.Errorf("lookup %q: %w", tokenEmail, err)
		}

		service := auth.NewService(db, []byte(cfg.JWTSecret), cfg.JWTTTL, cfg.AllowedEmailDomain)
		resp, err := service.GenerateToken(user)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", resp.Token)
		fmt.Fprintf(cmd.ErrOrStderr(), "user=%s expires=%s\n", user.ID, resp.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email of the account")
	_ = tokenCmd.MarkFlagRequired("email")
}
