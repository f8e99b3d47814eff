// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/glsp/server"

	"constfold/internal/lsp"
)

const lsName = "constfold"

var version = "0.1.0"

func main() {
	// Logs go to stderr; stdout carries the protocol
	commonlog.Configure(1, nil)

	handler := lsp.NewHandler(version).ProtocolHandler()

	// debug=false keeps glsp's own message tracing off
	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting constfold LSP server...")

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting constfold LSP server:", err)
		os.Exit(1)
	}
}
