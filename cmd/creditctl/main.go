package main

import (
	"os"
)

func main() {
	root, closeApp := newRootCmd(openApp)
	err := root.Execute()
	closeApp()
	if err != nil {
		os.Exit(1)
	}
}
