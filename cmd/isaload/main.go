package main

import "github.com/mesdata/isaload/cmd/isaload/cmd"

func main() {
	cmd.Execute()
}
