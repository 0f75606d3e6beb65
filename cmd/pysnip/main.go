package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	var exit exitError
	if !errors.As(err, &exit) {
		fmt.Fprintln(os.Stderr, "pysnip:", err)
		os.Exit(exitCodeFor(err))
	}
	if !exit.silent && exit.message != "" {
		fmt.Fprintln(os.Stderr, exit.message)
	}
	os.Exit(exit.code)
}
