package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the listing service and store the session",
	Long: `Exchange credentials for a listing-service session through the proxy.
The password is read from --password, CAMPFINDER_PASSWORD or stdin.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			return errors.New("--email is required")
		}
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		msg, err := e.Sessions.Login(ctx, email, password)
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "logged in"
		}
		fmt.Fprintln(os.Stdout, msg)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer e.Close()
		e.Sessions.Logout(cmd.Context())
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prefer CAMPFINDER_PASSWORD or stdin)")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func readPassword(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	if p := os.Getenv("CAMPFINDER_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
