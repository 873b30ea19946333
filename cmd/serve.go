package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"github.com/kozaktomas/vms-kiosk/internal/ticker"
	"github.com/kozaktomas/vms-kiosk/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local kiosk API",
	Long: `Start the local kiosk API used by the kiosk browser shell.
The API exposes the check-in screens, the face scan dialog with live preview
and server-sent events, operator sign-in, mobile verification and /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}

	clock := kiosk.StartClock(ticker.NewReal())
	defer clock.Stop()

	otpService := newOTPService(a)
	defer otpService.Close()

	server := web.NewServer(web.Deps{
		Config:   a.cfg,
		Kiosk:    a.kiosk(),
		Session:  a.session,
		API:      a.client,
		OTP:      otpService,
		Clock:    clock,
		Gatherer: a.registry,
		Logger:   a.logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error during shutdown", zap.Error(err))
		}
	}()

	if claims, err := a.session.Claims(); err == nil {
		fmt.Printf("Signed in as %s (%s)\n", claims.Email, claims.Role)
	} else {
		notifyWarn("No operator signed in; sign in through the kiosk or with vms-kiosk login")
	}
	fmt.Printf("Starting kiosk API on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
