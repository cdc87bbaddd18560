package main

import "github.com/agentic-research/blocks/cmd"

func main() {
	cmd.Execute()
}
