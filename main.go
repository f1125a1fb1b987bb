package main

import "github.com/andresmejia3/playbook/cmd"

func main() {
	cmd.Execute()
}
