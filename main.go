// Command uascm synchronizes a live automation server's node tree with a
// version-controllable file tree.
package main

import "github.com/uascm/uascm/cmd"

func main() {
	cmd.Execute()
}
