package main

import "authcore/internal/cli"

func main() {
	cli.Execute()
}
