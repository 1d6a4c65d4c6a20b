package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"finchat/api"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, err := promptLine("Username: ")
		if err != nil {
			return err
		}
		email, err := promptLine("Email: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		user, err := app.API.Register(cmd.Context(), api.RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s. Run 'finchat login' to sign in.\n", user.Username)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and persist the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := promptLine("Email: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		sess, err := app.API.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s.\n", sess.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the persisted session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.API.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func init() {
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd)
}
