package main

import "github.com/agentic-research/monfs/cmd"

func main() {
	cmd.Execute()
}
