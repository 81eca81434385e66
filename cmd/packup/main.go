package main

import "github.com/vietddude/packup/internal/cli"

func main() {
	cli.Execute()
}
