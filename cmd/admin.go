/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/contesthub/apiserver/config"
	"github.com/contesthub/apiserver/internal/db"
	"github.com/contesthub/apiserver/internal/store"
	"github.com/contesthub/apiserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// adminCmd represents the admin command.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var (
	adminCreateUsername string
	adminCreateEmail    string
	adminCreatePassword string
)

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.TrimSpace(adminCreateUsername)
		email := strings.TrimSpace(adminCreateEmail)
		if username == "" || email == "" || adminCreatePassword == "" {
			return errors.New("username, email, and password are required")
		}

		cfg := config.LoadConfig()
		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
		defer func() {
			_ = dbConn.Close()
		}()

		hash, err := bcrypt.GenerateFromPassword([]byte(adminCreatePassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password failed: %w", err)
		}

		repo := store.NewAdminRepository(dbConn)
		admin, err := repo.Create(cmd.Context(), types.Admin{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return errors.New("an account with that email or username already exists")
			}
			return fmt.Errorf("create admin failed: %w", err)
		}

		fmt.Printf("created admin %q (id %d)\n", admin.Username, admin.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringVar(&adminCreateUsername, "username", "", "administrator username")
	adminCreateCmd.Flags().StringVar(&adminCreateEmail, "email", "", "administrator email")
	adminCreateCmd.Flags().StringVar(&adminCreatePassword, "password", "", "administrator password")
	_ = adminCreateCmd.MarkFlagRequired("username")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
}
