package main

import "drift-reconciler/cmd"

func main() {
	cmd.Execute()
}
