package main

import "github.com/himansukumarhkr/Click/cmd"

func main() {
	cmd.Execute()
}
