package main

import (
	"os"

	"github.com/memoria-app/memoria/internal/client/cli"
)

func main() {
	os.Exit(cli.Execute())
}
