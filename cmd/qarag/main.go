package main

import "qarag/internal/cli"

func main() {
	cli.Execute()
}
