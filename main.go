package main

import (
	"broadcast-tracker/internal/cli"
)

func main() {
	cli.Execute()
}
