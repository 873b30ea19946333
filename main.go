package main

import "github.com/kozaktomas/vms-kiosk/cmd"

func main() {
	cmd.Execute()
}
