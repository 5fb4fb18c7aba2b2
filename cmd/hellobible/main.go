// Package main is the single-binary entrypoint for HelloBible's progress
// engine: the CLI and the local API server.
package main

import "github.com/hellobible/hellobible/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
