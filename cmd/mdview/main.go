package main

import (
	"log"

	"github.com/csams/mdview/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
