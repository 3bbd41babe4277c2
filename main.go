package main

import "github.com/chrisdamba/profitlens/cmd"

func main() {
	cmd.Execute()
}
