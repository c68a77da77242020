package main

import "github.com/ezmode-games/ctd/pkg/cli"

func main() {
	cli.Execute()
}
