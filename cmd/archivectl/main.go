package main

import (
	"os"

	"docarchive/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
