package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nawinsharma/kandid/internal/config"
	"github.com/nawinsharma/kandid/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	fmt.Println("Migrations completed successfully")
	return nil
}

// openDatabase loads the config file and opens the database it names
func openDatabase() (*config.Config, *db.DB, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, database, nil
}
