/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// owrxadmin manages receiver user accounts from the command line.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/doccodyblue/openwebrx/internal/config"
	"github.com/doccodyblue/openwebrx/internal/db"
	"github.com/doccodyblue/openwebrx/internal/models"
)

var (
	nonInteractive bool
	silent         bool
)

var rootCmd = &cobra.Command{
	Use:           "owrxadmin",
	Short:         "OpenWebRX user administration",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var addUserCmd = &cobra.Command{
	Use:   "adduser <username>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddUser,
}

var removeUserCmd = &cobra.Command{
	Use:   "removeuser <username>",
	Short: "Delete a user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveUser,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "resetpassword <username>",
	Short: "Set a new password for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runResetPassword,
}

var listUsersCmd = &cobra.Command{
	Use:   "listusers",
	Short: "List user accounts",
	RunE:  runListUsers,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "noninteractive", false,
		"read the password from the OWRX_PASSWORD environment variable instead of prompting")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "suppress normal output")

	rootCmd.AddCommand(addUserCmd)
	rootCmd.AddCommand(removeUserCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(listUsersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func say(format string, args ...any) {
	if !silent {
		fmt.Printf(format+"\n", args...)
	}
}

func openDatabase() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return database, nil
}

// readPassword obtains the password either from the environment in
// noninteractive mode or by prompting twice on stdin.
func readPassword() (string, error) {
	if nonInteractive {
		password := os.Getenv("OWRX_PASSWORD")
		if password == "" {
			return "", errors.New("OWRX_PASSWORD must be set with --noninteractive")
		}
		return password, nil
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Password: ")
	first, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	fmt.Print("Confirm password: ")
	second, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	first = strings.TrimRight(first, "\r\n")
	second = strings.TrimRight(second, "\r\n")
	if first != second {
		return "", errors.New("passwords do not match")
	}
	if first == "" {
		return "", errors.New("password must not be empty")
	}
	return first, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func runAddUser(cmd *cobra.Command, args []string) error {
	username := args[0]

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	var existing models.User
	err = database.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return fmt.Errorf("user %q already exists", username)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	password, err := readPassword()
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Password: hash,
		Enabled:  true,
	}
	if err := database.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	say("user %q created", username)
	return nil
}

func runRemoveUser(cmd *cobra.Command, args []string) error {
	username := args[0]

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	result := database.Where("username = ?", username).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %q not found", username)
	}

	say("user %q removed", username)
	return nil
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	username := args[0]

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	var user models.User
	if err := database.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return err
	}

	password, err := readPassword()
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	user.Password = hash
	if err := database.Save(&user).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	say("password for %q updated", username)
	return nil
}

func runListUsers(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	var users []models.User
	if err := database.Order("username").Find(&users).Error; err != nil {
		return err
	}

	for _, user := range users {
		state := "enabled"
		if !user.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-24s %-8s created %s\n", user.Username, state, user.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
