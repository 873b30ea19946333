package cmd

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"github.com/kozaktomas/vms-kiosk/internal/visitor"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recognize a returning visitor by face",
	Long: `Capture the visitor's face and match it against known visitors. A match
shows the pre-filled registration. With --submit the returning visit is
registered right away using the visit details given with --set.

Example:
  vms-kiosk verify
  vms-kiosk verify --submit --set purpose=Meeting --set host="R. Sharma"`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addCaptureFlags(verifyCmd)
	verifyCmd.Flags().StringSlice("set", nil, "Visit field as name=value (repeatable)")
	verifyCmd.Flags().Bool("submit", false, "Register the returning visit after a match")
}

func runVerify(cmd *cobra.Command, args []string) error {
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

	if _, err := k.Enter(kiosk.ScreenVerification); err != nil {
		return err
	}
	if err := k.OpenScan(); err != nil {
		return err
	}
	if err := captureStill(ctx, k.Flow(), mustGetDuration(cmd, "delay")); err != nil {
		notifyError(err)
		return errors.New("capture failed")
	}

	stop := startSpinner("Verifying face")
	out, err := k.SubmitScan(ctx)
	stop()
	if err != nil {
		return err
	}

	match := out.Match
	switch match.Outcome {
	case visitor.OutcomeMatched:
		notifySuccess("%s", out.View.Greeting)
		fmt.Printf("Confidence: %s\n\n", out.View.Confidence)
	case visitor.OutcomeUnauthenticated:
		notifyWarn("%s", match.Message)
		return errors.New("sign in with: vms-kiosk login")
	default:
		notifyWarn("%s", match.Message)
		return errors.New("visitor not recognized")
	}

	if err := applyFields(k, fields); err != nil {
		notifyError(err)
		return errors.New("invalid visit details")
	}
	printFields(k.View())

	if !mustGetBool(cmd, "submit") {
		return nil
	}
	return submitVisitor(cmd, k)
}

// applyFields sets fields on the current draft. Nothing is set if any is rejected.
func applyFields(k *kiosk.Kiosk, fields map[string]string) error {
	var unknown []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if !slices.Contains(visitor.FieldOrder, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return kerrors.Invalid(unknown[0], "Unknown field "+strings.Join(unknown, ", "))
	}
	return k.SetFields(fields)
}

func printFields(view kiosk.View) {
	for _, f := range view.Fields {
		if f.Value == "" {
			continue
		}
		lock := ""
		if f.Locked {
			lock = " (locked)"
		}
		fmt.Printf("  %-16s %s%s\n", f.Name+":", f.Value, lock)
	}
	fmt.Println()
}

func submitVisitor(cmd *cobra.Command, k *kiosk.Kiosk) error {
	stop := startSpinner("Registering visitor")
	ack, err := k.Submit(cmd.Context())
	stop()
	if err != nil {
		notifyError(err)
		return errors.New("registration not sent")
	}
	if !ack.Success {
		notifyWarn("%s", ack.Message)
		return errors.New("registration rejected")
	}
	notifySuccess("%s", ack.Message)
	return nil
}
