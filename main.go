package main

import "threadscope/cmd"

func main() {
	cmd.Execute()
}
