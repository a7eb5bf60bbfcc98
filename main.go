package main

import "deckeditor/cmd"

func main() {
	cmd.Execute()
}
