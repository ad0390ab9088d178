// Command applaunchctl talks to a running applaunchd over gRPC.
//
// Usage:
//
//	applaunchctl list
//	applaunchctl start <id>
//	applaunchctl watch
//	applaunchctl --addr 10.0.0.2:50052 --output json list
package main

import (
	"os"

	"github.com/GriffinCanCode/applaunchd/cmd/applaunchctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
