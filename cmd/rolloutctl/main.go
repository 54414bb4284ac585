package main

import "github.com/apollo/fleetrollout/rolloutctl/cmd"

func main() {
	cmd.Execute()
}
