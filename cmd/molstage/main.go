package main

import (
	"fmt"
	"os"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	if current != nil {
		stopSession(current)
	}
	fmt.Fprintf(os.Stderr, "molstage: %s: %v\n", msg, err)
	os.Exit(1)
}
