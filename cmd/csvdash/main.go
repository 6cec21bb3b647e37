package main

import "github.com/JonMunkholm/csvdash/internal/cli"

func main() {
	cli.Execute()
}
