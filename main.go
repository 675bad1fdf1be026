package main

import "github.com/metal-toolbox/correlator/cmd"

func main() {
	cmd.Execute()
}
