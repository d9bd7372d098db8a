package main

import "github.com/ademuri/mood-tools/cmd"

func main() {
	cmd.Execute()
}
