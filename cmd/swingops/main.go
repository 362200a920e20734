package main

import "github.com/rustyeddy/swingops/internal/cli"

func main() {
	cli.Execute()
}
