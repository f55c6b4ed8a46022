// Command sgenginectl drives the engine outside of a host process: it
// builds a demo sound graph, pumps it through a malgo playback device,
// and serves Prometheus metrics and JSON telemetry over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
