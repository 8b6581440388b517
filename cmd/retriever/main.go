package main

import (
	"github.com/kayf-project/retriever/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
