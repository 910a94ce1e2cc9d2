package main

import "github.com/openvigil/vigil/internal/cli"

func main() {
	cli.Execute()
}
