package main

import "github.com/w4/dobble/cmd"

func main() {
	cmd.Execute()
}
