// docsign is the administration CLI for docsign-server (migrations, document status, dev tokens).
package main

import "github.com/information-sharing-networks/docsign/internal/cli"

func main() {
	cli.Execute()
}
