package main

import (
	"errors"
	"log"
	"os"
	stdlog "log"
)

type server struct{}

func (server) Close() {}

func (server) Run() error { return errors.New("listen: address in use") }

func open() (server, error) {
	if len(os.Args) > 5 {
		os.Exit(2) // want "os.Exit in open skips deferred cleanup, return an error instead"
	}
	return server{}, nil
}

func run() error {
	srv, err := open()
	if err != nil {
		log.Fatalf("open: %v", err) // want "log.Fatalf in run skips deferred cleanup, return an error instead"
	}
	defer srv.Close()

	if len(os.Args) > 3 {
		stdlog.Fatal("too many arguments") // want "log.Fatal in run skips deferred cleanup, return an error instead"
	}

	return srv.Run()
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("notekeeper: %v", err)
	}

	if len(os.Args) > 4 {
		os.Exit(1) // want "avoid using os.Exit in main.main"
	}
}
