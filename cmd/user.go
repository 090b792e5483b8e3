/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PhaseWing/internal/auth"
	"github.com/josephgoksu/PhaseWing/internal/config"
	"github.com/josephgoksu/PhaseWing/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage PhaseWing accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account directly in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		superuser, _ := cmd.Flags().GetBool("superuser")

		reg := auth.Registration{Username: username, Email: email, Password: password}
		if err := reg.Validate(); err != nil {
			return err
		}

		st, err := store.Open(config.GetDataDir())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer func() { _ = st.Close() }()

		u, err := st.CreateUser(reg.Username, reg.Email, reg.Password, superuser)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		role := "user"
		if u.IsSuperuser {
			role = "superuser"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s <%s> (id %d)\n", role, u.Username, u.Email, u.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().String("username", "", "username (required)")
	userCreateCmd.Flags().String("email", "", "email address (required)")
	userCreateCmd.Flags().String("password", "", "password, at least 6 characters (required)")
	userCreateCmd.Flags().Bool("superuser", false, "grant superuser rights")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
}
