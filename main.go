package main

import "github.com/anvilsh/anvil/cmd"

func main() {
	cmd.Execute()
}
