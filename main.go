package main

import "nathanbeddoewebdev/shots/cmd"

func main() {
	cmd.Execute()
}
