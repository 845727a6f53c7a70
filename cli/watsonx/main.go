package main

import (
	"os"

	watsonxcmder "github.com/papercomputeco/watsonx/cmd/watsonx"
)

func main() {
	cmd := watsonxcmder.NewWatsonxCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
