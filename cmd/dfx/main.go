package main

import "github.com/OpenTraceLab/designformat/cmd/dfx/cmd"

func main() {
	cmd.Execute()
}
