package main

import "github.com/forPelevin/gistcut/internal/cli"

func main() {
	cli.Main()
}
