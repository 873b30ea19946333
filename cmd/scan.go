package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/facescan"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <output.jpg>",
	Short: "Capture a face still from the kiosk camera",
	Long: `Start the kiosk camera, wait for the live feed and save one JPEG still.
Useful to check camera placement and permissions before opening the kiosk.

Example:
  vms-kiosk scan face.jpg --delay 3s`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addCaptureFlags(scanCmd)
}

// addCaptureFlags registers the flags of commands that take a face still.
func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("delay", 2*time.Second, "Time for the visitor to face the camera once the feed is live")
}

// interruptible returns a context cancelled on Ctrl+C.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := interruptible(cmd)
	defer cancel()

	flow := facescan.New(a.camera, a.cfg.Camera.JPEGQuality, a.metrics, a.logger)
	defer flow.Close()

	result, err := flow.Open(ctx)
	if err != nil {
		return err
	}
	if err := captureStill(ctx, flow, mustGetDuration(cmd, "delay")); err != nil {
		notifyError(err)
		return errors.New("capture failed")
	}
	if err := flow.Submit(); err != nil {
		return err
	}
	img, ok := <-result
	if !ok {
		return facescan.ErrCancelled
	}

	if err := os.WriteFile(args[0], img.Data, 0600); err != nil {
		return fmt.Errorf("could not write still: %w", err)
	}
	notifySuccess("Saved %dx%d still to %s", img.Width, img.Height, args[0])
	return nil
}

// captureStill waits for the live feed, gives the visitor delay to settle and
// takes the still. The camera is stopped afterwards.
func captureStill(ctx context.Context, flow *facescan.Flow, delay time.Duration) error {
	stop := startSpinner("Starting camera")
	err := flow.Ready(ctx)
	stop()
	if err != nil {
		return err
	}

	if delay > 0 {
		fmt.Printf("Look at the camera...\n")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	img, err := flow.Capture()
	if err != nil {
		return err
	}
	fmt.Printf("Captured %dx%d still\n", img.Width, img.Height)
	return nil
}

// parseAssignments turns name=value pairs into a map. Names are lower-cased.
func parseAssignments(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, expected name=value", pair)
		}
		fields[name] = value
	}
	return fields, nil
}
