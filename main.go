package main

import "volume-surge-alerts/internal/cli"

func main() {
	cli.Execute()
}
