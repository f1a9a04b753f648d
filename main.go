package main

import (
	"github.com/ordforge/mint-engine/cmd"
	_ "go.uber.org/automaxprocs"
)

func main() {
	cmd.Execute()
}
