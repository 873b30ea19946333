package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/vms-kiosk/internal/session"
	"github.com/kozaktomas/vms-kiosk/internal/vmsone"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign the kiosk in with an operator account",
	Long: `Sign the kiosk in with a VMSONE operator account. The access token is stored
in the state directory and used by every other command until logout or expiry.

Example:
  vms-kiosk login --email guard@example.com --password secret`,
	RunE: runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an operator account",
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored operator session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in operator",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().String("email", "", "Operator email")
	loginCmd.Flags().String("password", "", "Operator password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	signupCmd.Flags().String("full-name", "", "Operator full name")
	signupCmd.Flags().String("email", "", "Operator email")
	signupCmd.Flags().String("password", "", "Operator password")
	signupCmd.Flags().String("role", "security", "Operator role (security or admin)")
	_ = signupCmd.MarkFlagRequired("full-name")
	_ = signupCmd.MarkFlagRequired("email")
	_ = signupCmd.MarkFlagRequired("password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	token, err := a.client.Login(cmd.Context(), mustGetString(cmd, "email"), mustGetString(cmd, "password"))
	if err != nil {
		notifyError(err)
		return errors.New("login failed")
	}
	claims, err := session.DecodeClaims(token)
	if err != nil {
		return fmt.Errorf("backend returned an unreadable token: %w", err)
	}
	if err := a.session.SetToken(token); err != nil {
		return fmt.Errorf("could not store token: %w", err)
	}

	notifySuccess("Signed in as %s (%s)", claims.Email, claims.Role)
	fmt.Printf("Next screen: %s\n", session.NextScreenForRole(claims.Role))
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	resp, err := a.client.Signup(cmd.Context(), vmsone.SignupRequest{
		FullName: mustGetString(cmd, "full-name"),
		Email:    mustGetString(cmd, "email"),
		Password: mustGetString(cmd, "password"),
		Role:     mustGetString(cmd, "role"),
	})
	if err != nil {
		notifyError(err)
		return errors.New("signup failed")
	}

	msg := string(resp.Message)
	if msg == "" {
		msg = "Account created successfully!"
	}
	notifySuccess("%s", msg)
	fmt.Println("Sign in with: vms-kiosk login")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.session.Logout(); err != nil {
		return fmt.Errorf("could not clear session: %w", err)
	}
	notifySuccess("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	claims, err := a.session.Claims()
	if err != nil {
		notifyWarn("Not signed in")
		return nil
	}
	fmt.Printf("Email: %s\n", claims.Email)
	fmt.Printf("Role:  %s\n", claims.Role)
	if claims.ExpiresAt != nil {
		fmt.Printf("Until: %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
