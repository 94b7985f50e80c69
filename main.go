package main

import "github.com/mpapenbr/owlracer-agent-go/cmd"

func main() {
	cmd.Execute()
}
