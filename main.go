package main

import "github.com/rwakeham/wattbox-controller/cmd"

func main() {
	cmd.Execute()
}
