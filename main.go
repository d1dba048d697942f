package main

import "github.com/theirongolddev/smartpay/cmd"

func main() {
	cmd.Execute()
}
