package main

import (
	"github.com/dogeorg/wificonnect/cmd/wifi-connect/cmd"
)

func main() {
	cmd.Execute()
}
