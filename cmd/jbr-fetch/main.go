package main

import "github.com/oshokin/jbr-fetch/cmd/jbr-fetch/cmd"

func main() {
	cmd.Execute()
}
