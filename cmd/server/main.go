package main

import (
	"github.com/Ahnaf-Tariq/echochat-server/cmd"
)

func main() {
	cmd.Execute()
}
