// Command schemagate serves JSON Schema validation gates over HTTP and checks
// schemas and documents from the command line.
package main

import "github.com/raywall/json-schema-gate/cmd/schemagate/cmd"

func main() {
	cmd.Execute()
}
