package main

import "github.com/localbeat/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
