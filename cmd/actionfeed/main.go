package main

import (
	"os"

	"github.com/pfrederiksen/actionfeed/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
