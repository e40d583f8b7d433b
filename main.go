// The main package for the trafikalert executable.
package main

import (
	"trafikalert/cmd"
)

func main() {
	cmd.Execute()
}
