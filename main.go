package main

import "github.com/silvercare/companion/cmd"

func main() {
	cmd.Execute()
}
