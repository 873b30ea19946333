package cmd

import (
	"errors"

	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new visitor with a face photo",
	Long: `Fill the new-visitor form from --set fields, capture the visitor's face
and send the registration.

Fields: full_name, phone, email, nationality, company, purpose, host,
category (Employee, Guest, Contractor), id_proof_type (Adhaar, Pan, DL,
Passport), id_proof_number, vehicle_details, asset_details.

Example:
  vms-kiosk register --set full_name="John Roe" --set phone=9876543210 --set category=Guest`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	addCaptureFlags(registerCmd)
	registerCmd.Flags().StringSlice("set", nil, "Form field as name=value (repeatable)")
}

func runRegister(cmd *cobra.Command, args []string) error {
	fields, err := parseAssignments(mustGetStringSlice(cmd, "set"))
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := interruptible(cmd)
	defer cancel()

	k := a.kiosk()
	defer k.Leave()

	if _, err := k.Enter(kiosk.ScreenRegistration); err != nil {
		return err
	}
	if err := applyFields(k, fields); err != nil {
		notifyError(err)
		return errors.New("invalid visitor details")
	}

	if err := k.OpenScan(); err != nil {
		return err
	}
	if err := captureStill(ctx, k.Flow(), mustGetDuration(cmd, "delay")); err != nil {
		notifyError(err)
		return errors.New("capture failed")
	}
	if _, err := k.SubmitScan(ctx); err != nil {
		return err
	}

	printFields(k.View())
	return submitVisitor(cmd, k)
}
