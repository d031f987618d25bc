package main

import "github.com/ranobe-tools/noveld/cmd"

func main() {
	cmd.Execute()
}
