package main

import "github.com/chris/tgrid/cmd"

func main() {
	cmd.Execute()
}
