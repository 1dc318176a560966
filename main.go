package main

import "cmstree/cmd"

func main() {
	cmd.Execute()
}
