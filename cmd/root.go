package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var stateDir string

var rootCmd = &cobra.Command{
	Use:   "vms-kiosk",
	Short: "Visitor check-in kiosk for VMSONE",
	Long: `VMS Kiosk runs the visitor check-in station of a VMSONE installation.
It drives the local camera, matches returning visitors by face against the
VMSONE backend and registers new visitors. Operators use it from the terminal
or through the local API started by "vms-kiosk serve".`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Directory holding the operator session (overrides KIOSK_STATE_DIR)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
