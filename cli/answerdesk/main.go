package main

import (
	"os"

	answerdeskcmder "github.com/papercomputeco/answerdesk/cmd/answerdesk"
)

func main() {
	cmd := answerdeskcmder.NewAnswerdeskCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
