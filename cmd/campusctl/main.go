package main

import (
	"fmt"
	"log"
	"os"

	"github.com/campuslink/backend/internal/config"
	"github.com/campuslink/backend/internal/database"
	"github.com/campuslink/backend/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "campusctl",
	Short: "campusctl - operator tooling for the campuslink backend",
	Long: `campusctl talks directly to the campuslink database using the same
environment configuration as the server. Use it to migrate the schema,
seed a development database, or mint a token for an existing account.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using system environment variables")
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return logger.Initialize(logLevel, cfg.LogFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
}

// openDB connects with the loaded configuration. The caller closes it.
func openDB() (*gorm.DB, error) {
	db, err := database.Open(cfg.Database, !cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
