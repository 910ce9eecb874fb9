package main

import (
	"os"

	"github.com/harrisonrobin/taskboard/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
