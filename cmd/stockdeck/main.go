package main

import "github.com/stock-deck/stockdeck/cmd/stockdeck/cmd"

func main() {
	cmd.Execute()
}
