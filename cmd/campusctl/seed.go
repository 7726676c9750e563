package main

import (
	"fmt"

	"github.com/campuslink/backend/internal/chat"
	"github.com/campuslink/backend/internal/database"
	"github.com/campuslink/backend/internal/repository"
	"github.com/campuslink/backend/internal/seed"
	"github.com/spf13/cobra"
)

var seedUsers int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a development database with fake users, chats and posts",
	Long: `seed migrates the schema and then creates fake users, a direct
conversation, a group conversation and posts with comments. Every seeded
account uses the password printed at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProduction() {
			return fmt.Errorf("refusing to seed a production database")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}

		conversations := chat.NewConversationStore(db)
		// No hub here: messages are persisted and pointers updated, nothing is pushed.
		coordinator := chat.NewCoordinator(conversations, chat.NewMessageStore(db), nil, nil)
		seeder := seed.NewSeeder(db, conversations, coordinator, repository.NewPostRepository(db))

		summary, err := seeder.SeedDev(cmd.Context(), seedUsers)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s\nPassword for every account: %s\n", summary, seed.DefaultPassword)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 10, "Number of users to create (at least 3)")
}
