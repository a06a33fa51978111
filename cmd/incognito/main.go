// Command incognito verifies user pool tokens and inspects the pool's keyset
// from the command line.
package main

import "os"

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
