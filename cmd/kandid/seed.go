package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nawinsharma/kandid/internal/auth"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/seed"
	"github.com/nawinsharma/kandid/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo campaigns, leads and accounts for a user",
	RunE:  runSeed,
}

var seedEmail string

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "Owner of the demo data")
	seedCmd.MarkFlagRequired("email")
}

func runSeed(cmd *cobra.Command, args []string) error {
	_, database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	user, err := repository.NewUserRepository(database.DB).GetByEmail(ctx, auth.NormalizeEmail(seedEmail))
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", seedEmail)
	}

	res, err := seed.Demo(ctx, service.New(database.DB), user.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded data for %s\n", user.Email)
	fmt.Printf("  Campaigns:         %d\n", res.Campaigns)
	fmt.Printf("  Leads:             %d\n", res.Leads)
	fmt.Printf("  Interactions:      %d\n", res.Interactions)
	fmt.Printf("  LinkedIn accounts: %d\n", res.Accounts)
	return nil
}
