package main

import (
	"os"

	"github.com/shouni/image-stream-kit/cmd/imagegen/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
