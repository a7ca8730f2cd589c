package main

import (
	"os"

	"github.com/code-payments/code-idl/pkg/app"
)

func main() {
	os.Exit(app.Run(commands, os.Args[1:], os.Stdout, os.Stderr))
}
