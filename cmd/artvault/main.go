// Command artvault is the operator tool for the gallery storage layer.
package main

import "github.com/dreamlayer/artvault/internal/cli"

func main() {
	cli.Execute()
}
