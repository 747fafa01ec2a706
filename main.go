package main

import "github.com/frahmantamala/training-identity/cmd"

func main() {
	cmd.Execute()
}
