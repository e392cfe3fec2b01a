package main

import "github.com/dlux-io/dluxgate/cmd"

func main() {
	cmd.Execute()
}
