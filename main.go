// SPDX-License-Identifier: MIT
package main

import (
	"os"

	"equalizer/cmd"
	applog "equalizer/internal/log"
	"equalizer/pkg/build"
)

// main is the entry point for the equalizer.
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//
// 2. Concurrent Phase (Hot Path):
//   - PortAudio calls ProcessBlock on its own thread
//   - The analyzer, transports and monitor run on their own goroutines
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or monitor exit
//   - Stop recording, close the stream and transports
func main() {
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v, running a development build", err)
	}

	if err := cmd.Execute(os.Args[1:]); err != nil {
		applog.Fatalf("%v", err)
	}
}
