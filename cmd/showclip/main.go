package main

import "showclip/internal/cli"

func main() {
	cli.Main()
}
