package main

import "github.com/4Lajf/karczma-wrapped/cmd"

func main() {
	cmd.Execute()
}
