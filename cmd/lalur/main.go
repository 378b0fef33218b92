package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Sconzo/lalur-sub001/cmd/lalur/cmd"
	"github.com/Sconzo/lalur-sub001/internal/app"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cmd.SetVersionInfo(version, commit)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
