package main

import "github.com/mwoo-bridge/mwoo/cmd"

func main() {
	cmd.Execute()
}
