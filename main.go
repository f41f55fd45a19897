package main

import (
	"fmt"
	"os"
)

// -------------------- MAIN --------------------

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
