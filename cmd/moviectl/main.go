package main

import "github.com/user/moviecatalog/internal/cli"

func main() {
	cli.Execute()
}
