package main

import "github.com/maitred-ai/maitred/cmd"

func main() {
	cmd.Execute()
}
