package main

import "github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd"

func main() {
	cmd.Execute()
}
