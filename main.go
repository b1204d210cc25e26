package main

import "github.com/KaramelBytes/tabprof/cmd"

func main() {
	cmd.Execute()
}
