package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nawinsharma/kandid/internal/auth"
	"github.com/nawinsharma/kandid/internal/db"
	"github.com/nawinsharma/kandid/internal/repository"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE:  runUserCreate,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  runUserList,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete [email]",
	Short: "Delete a user with all their campaigns, leads and accounts",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDelete,
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password [email]",
	Short: "Reset user password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserResetPassword,
}

var (
	userEmail    string
	userPassword string
	userName     string
	userYes      bool
)

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "User email")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "User password (will prompt if not provided)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "User name")
	userCreateCmd.MarkFlagRequired("email")

	userResetPasswordCmd.Flags().StringVar(&userPassword, "password", "", "New password (will prompt if not provided)")
	userDeleteCmd.Flags().BoolVarP(&userYes, "yes", "y", false, "Do not ask for confirmation")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userResetPasswordCmd)
}

// cliGate builds a gate for operator commands. Sessions and tokens are
// never issued from the CLI, so the token issuer stays nil.
func cliGate(database *db.DB) *auth.Gate {
	return auth.NewGate(
		repository.NewUserRepository(database.DB),
		repository.NewSessionRepository(database.DB),
		nil,
		auth.GateConfig{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	_, database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	password := userPassword
	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	user, err := cliGate(database).CreateUser(context.Background(), userEmail, userName, password)
	if err != nil {
		return err
	}

	fmt.Printf("User %s created successfully (id %s)\n", user.Email, user.ID)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	_, database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	users, err := repository.NewUserRepository(database.DB).List(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-30s  %-20s  %-5s  %s\n", "ID", "Email", "Name", "Local", "Created")
	fmt.Println(strings.Repeat("-", 110))

	for _, u := range users {
		local := "no"
		if u.PasswordHash != "" {
			local = "yes"
		}
		fmt.Printf("%-36s  %-30s  %-20s  %-5s  %s\n",
			u.ID, u.Email, u.Name, local, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	email := auth.NormalizeEmail(args[0])

	_, database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if !userYes {
		fmt.Printf("Are you sure you want to delete user %s and all their data? [y/N]: ", email)
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Cancelled")
			return nil
		}
	}

	err = repository.NewUserRepository(database.DB).DeleteByEmail(context.Background(), email)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("user %s not found", email)
	}
	if err != nil {
		return err
	}

	fmt.Printf("User %s deleted\n", email)
	return nil
}

func runUserResetPassword(cmd *cobra.Command, args []string) error {
	email := args[0]

	_, database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	password := userPassword
	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	err = cliGate(database).SetPassword(context.Background(), email, password)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("user %s not found", email)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Password for %s updated\n", email)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Enter password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if string(pw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pw), nil
}
