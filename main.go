package main

import "github.com/naka-gawa/pr-dashboard/cmd"

func main() {
	cmd.Execute()
}
