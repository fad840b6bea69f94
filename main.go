package main

import (
	"os"

	"github.com/tanpawarit/support-triage-agent/cmd"
	_ "github.com/tanpawarit/support-triage-agent/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
