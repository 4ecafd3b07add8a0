package main // Entry point package

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	loadLocalEnv()

	root := &cobra.Command{
		Use:           "home-services",
		Short:         "Auth API and route-guarded web server for the home services marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		serveCmd(),
		migrateCmd(),
		seedAdminCmd(),
		consumeEventsCmd(),
	)
	// serve is the default command.
	root.RunE = serveCmd().RunE

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
