package main

import (
	"os"

	"github.com/philroche/lpshipit/internal/cli"
)

func main() {
	os.Exit(cli.RunMessage(os.Args[1:], os.Stdout, os.Stderr))
}
