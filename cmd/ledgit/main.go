// Command ledgit versions a directory of tabular data files with git.
package main

import "github.com/MyCarrier-DevOps/go-ledgit/cmd"

func main() {
	cmd.Execute()
}
