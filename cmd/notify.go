package cmd

import (
	"time"

	"github.com/fatih/color"
	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"github.com/schollz/progressbar/v3"
)

func notifySuccess(format string, args ...any) {
	color.Green(format, args...)
}

func notifyWarn(format string, args ...any) {
	color.Yellow(format, args...)
}

// notifyError prints the kiosk notice for err.
func notifyError(err error) {
	color.Red("%s", kiosk.Notice(err))
}

// startSpinner shows an indeterminate spinner until the returned stop is called.
func startSpinner(description string) (stop func()) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
