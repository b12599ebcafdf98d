package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faceclock",
	Short: "Face-recognition attendance tracking",
	Long: `Faceclock records employee attendance from face-embedding check-ins.
It matches probe embeddings against enrolled faces, validates events
against a per-day state machine, and evaluates exception requests
(late arrivals, early leaves) with an auto-approval rule engine.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
