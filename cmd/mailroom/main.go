package main

import (
	"os"

	"github.com/dmitrymomot/mailroom/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
