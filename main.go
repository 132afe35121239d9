package main

import (
	"github.com/magnet-network/presale-engine/cmd"
	_ "go.uber.org/automaxprocs"
)

func main() {
	cmd.Execute()
}
