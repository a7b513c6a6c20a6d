package main

import "spendview/internal/cli"

func main() {
	cli.Execute()
}
