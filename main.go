package main

import (
	"github.com/sidkik/cdnsync/cmd"
	"github.com/sidkik/cdnsync/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
