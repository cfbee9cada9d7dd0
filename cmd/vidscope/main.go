package main

import "github.com/forPelevin/vidscope/internal/cli"

func main() {
	cli.Main()
}
