package main

import "github.com/relloyd/healthpipe/cmd"

func main() {
	cmd.Execute()
}
