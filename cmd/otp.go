package cmd

import (
	"errors"

	"github.com/kozaktomas/vms-kiosk/internal/otp"
	"github.com/kozaktomas/vms-kiosk/internal/ticker"
	"github.com/spf13/cobra"
)

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Verify a visitor's mobile number",
}

var otpSendCmd = &cobra.Command{
	Use:   "send <mobile>",
	Short: "Send a one-time password to a mobile number",
	Args:  cobra.ExactArgs(1),
	RunE:  runOTPSend,
}

var otpVerifyCmd = &cobra.Command{
	Use:   "verify <mobile> <code>",
	Short: "Check the one-time password the visitor received",
	Args:  cobra.ExactArgs(2),
	RunE:  runOTPVerify,
}

func init() {
	rootCmd.AddCommand(otpCmd)
	otpCmd.AddCommand(otpSendCmd, otpVerifyCmd)
}

func newOTPService(a *app) *otp.Service {
	return otp.New(a.client, ticker.NewReal(), a.cfg.Kiosk.OTPCooldown, a.logger)
}

func runOTPSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	service := newOTPService(a)
	defer service.Close()

	res, err := service.Send(cmd.Context(), args[0])
	return reportOTP(res, err)
}

func runOTPVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	service := newOTPService(a)
	defer service.Close()

	res, err := service.Verify(cmd.Context(), args[0], args[1])
	return reportOTP(res, err)
}

func reportOTP(res otp.Result, err error) error {
	if err == nil && res.OK {
		notifySuccess("%s", res.Message)
		return nil
	}
	notifyWarn("%s", res.Message)
	return errors.New("mobile verification failed")
}
