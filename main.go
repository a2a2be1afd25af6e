// main is the entry point for the devpulse CLI.
package main

import (
	"github.com/huangsam/devpulse/cmd"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/iocache"
)

func main() {
	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	cmd.Sync()
	iocache.CloseStores()
	if err != nil {
		contract.LogFatal("devpulse failed", err)
	}
}
