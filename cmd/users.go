/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vente/apiserver/internal/auth"
	"github.com/vente/apiserver/internal/db"
	"github.com/vente/apiserver/internal/services"
	"github.com/vente/apiserver/internal/store"
	"github.com/vente/apiserver/types"
)

var createUserFlags struct {
	username  string
	email     string
	password  string
	superuser bool
	inactive  bool
}

// createUserCmd bootstraps accounts; the API has no registration endpoint.
var createUserCmd = &cobra.Command{
	Use:   "createuser",
	Short: "Create an account directly in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}

		in := types.UserCreate{
			Username:    strings.TrimSpace(createUserFlags.username),
			Email:       strings.TrimSpace(createUserFlags.email),
			Password:    createUserFlags.password,
			IsActive:    !createUserFlags.inactive,
			IsSuperuser: createUserFlags.superuser,
		}
		if err := validator.New(validator.WithRequiredStructEnabled()).Struct(in); err != nil {
			return fmt.Errorf("invalid account: %w", err)
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		users := services.NewUserService(store.NewUserRepository(conn), auth.NewPasswordHasher(cfg.Auth.BcryptCost))
		user, err := users.Create(cmd.Context(), in)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return errors.New("username or email already taken")
			}
			return err
		}

		logger.WithFields(logrus.Fields{
			"id":        user.ID,
			"username":  user.Username,
			"superuser": user.IsSuperuser,
		}).Info("account created")
		return nil
	},
}

// hashPasswordCmd prints a bcrypt hash for seeding accounts by hand.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash of a password",
	Long: `Print the bcrypt hash of a password. When no argument is given the
password is read from the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, err := bcryptCost()
		if err != nil {
			return err
		}

		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			password, err = readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
		}

		hash, err := auth.NewPasswordHasher(cost).Hash(password)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return err
	},
}

var hashCost int

func bcryptCost() (int, error) {
	if hashCost != 0 {
		return hashCost, nil
	}
	cfg, _, err := loadRuntime()
	if err != nil {
		return 0, err
	}
	return cfg.Auth.BcryptCost, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(createUserCmd)
	rootCmd.AddCommand(hashPasswordCmd)

	createUserCmd.Flags().StringVar(&createUserFlags.username, "username", "", "login name")
	createUserCmd.Flags().StringVar(&createUserFlags.email, "email", "", "email address")
	createUserCmd.Flags().StringVar(&createUserFlags.password, "password", "", "initial password")
	createUserCmd.Flags().BoolVar(&createUserFlags.superuser, "superuser", false, "grant superuser privileges")
	createUserCmd.Flags().BoolVar(&createUserFlags.inactive, "inactive", false, "create the account disabled")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")

	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 0, "bcrypt cost (defaults to BCRYPT_COST)")
}
