package main

import (
	"os"

	"github.com/appdevdesigns/appbuilder-platform-mobile/cmd/appsync/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
