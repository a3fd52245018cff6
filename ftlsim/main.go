// Command ftlsim replays host request traces against a simulated flash
// device and reports how its translation layer behaves.
package main

import "github.com/sarchlab/ftlsim/ftlsim/cmd"

func main() {
	cmd.Execute()
}
