package main

import "github.com/atikulmunna/gclens/internal/cmd"

func main() {
	cmd.Execute()
}
