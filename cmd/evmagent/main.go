package main

import (
	"os"

	"github.com/larivera/evm-agent/internal/app"
)

func main() {
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
