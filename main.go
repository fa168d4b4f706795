package main

import (
	"os"

	"github.com/zsprackett/ai-battery/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
