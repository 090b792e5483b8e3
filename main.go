package main

import "github.com/josephgoksu/PhaseWing/cmd"

func main() {
	cmd.Execute()
}
