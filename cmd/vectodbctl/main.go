// Command vectodbctl exercises a vectodb working directory by hand: add
// vectors, run a search, trigger a build/activate cycle, print stats, or
// wipe the directory. It is a local, single-process CLI over the embedded
// library, not a network client/server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
