package main

import "github.com/deploykit/rollbackd/internal/cli"

func main() {
	cli.Execute()
}
