package main

import "vrrelay/cmd/cli/command"

func main() {
	command.Execute()
}
