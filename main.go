package main

import "github.com/benoctopus/worklog/cmd"

func main() {
	cmd.Execute()
}
