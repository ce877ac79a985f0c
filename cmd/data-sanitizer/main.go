package main

import (
	"os"

	"github.com/2hard2touch/smart-data-sanitizer/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
