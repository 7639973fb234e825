package main

import (
	"os"

	"github.com/objstore-policy-mgmt/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
