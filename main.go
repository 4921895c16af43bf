package main

import "github.com/dnitsch/objstore-cli/cmd"

func main() {
	cmd.Execute()
}
