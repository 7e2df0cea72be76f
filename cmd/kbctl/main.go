package main

import "github.com/kbplatform/kb-orchestrator/cmd/kbctl/cli"

func main() {
	cli.Execute()
}
