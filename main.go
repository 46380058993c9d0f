package main

import "github.com/alist-org/arkit/cmd"

func main() {
	cmd.Execute()
}
