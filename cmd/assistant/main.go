package main

import "github.com/arturoeanton/bizreg-assistant/internal/cli"

func main() {
	cli.Execute()
}
