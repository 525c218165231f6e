// Command notekeeper runs the notes HTTP service.
package main

import (
	"log"

	"github.com/patric-chuzhbe/notekeeper/internal/app"
)

func run() error {
	theApp, err := app.New()
	if err != nil {
		return err
	}
	defer theApp.Close()

	return theApp.Run()
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("notekeeper: %v", err)
	}
}
