package main

import "github.com/faceclock/faceclock/cmd"

func main() {
	cmd.Execute()
}
