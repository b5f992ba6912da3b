package main

import "github.com/jdelgadillo/msh/cmd"

func main() {
	cmd.Execute()
}
