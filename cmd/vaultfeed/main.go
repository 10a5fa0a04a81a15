package main

import "github.com/zfogg/vaultfeed/internal/cmd"

func main() {
	cmd.Execute()
}
