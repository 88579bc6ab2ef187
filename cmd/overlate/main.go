package main

import "github.com/overlate/overlate/cmd/overlate/commands"

func main() {
	commands.Execute()
}
