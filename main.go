package main

import "github.com/deploymenttheory/go-nxnand/cmd"

func main() {
	cmd.Execute()
}
