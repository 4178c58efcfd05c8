package main

import "github.com/rustyeddy/magnet/internal/cli"

func main() {
	cli.Execute()
}
