package main

import "github.com/vynaa/vbase/cmd"

func main() {
	cmd.Execute()
}
