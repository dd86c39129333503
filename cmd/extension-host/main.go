package main

import "github.com/oshokin/extension-host/cmd/extension-host/cmd"

func main() {
	cmd.Execute()
}
