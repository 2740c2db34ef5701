package main

import "github.com/acuvio/camlink/cmd/camlink/commands"

func main() {
	commands.Execute()
}
