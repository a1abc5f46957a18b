package main

import (
	_ "embed"

	"github.com/haierkeys/memory-server/cmd"
)

//go:embed config/config.yaml
var c string

func main() {
	cmd.Execute(c)
}
