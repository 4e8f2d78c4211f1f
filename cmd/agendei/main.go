package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/railtonbritomcp/App-agendei/internal/cli"
	"github.com/railtonbritomcp/App-agendei/internal/output"
)

func main() {
	if err := run(); err != nil {
		output.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	return cli.NewRootCmd(&cli.Dependencies{}).Execute()
}
