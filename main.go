package main

import "github.com/AyushAagrwal/DataStatX/cmd"

func main() {
	cmd.Execute()
}
