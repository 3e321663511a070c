package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// local development keys live in .env; absence is fine
	_ = godotenv.Load()

	var root = &cobra.Command{Use: "pressroom"}
	root.AddCommand(serveCMD(), analyzeCMD(), newsCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
