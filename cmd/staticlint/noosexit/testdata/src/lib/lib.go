package lib

import (
	"log"
	"os"
)

func Shutdown(code int) {
	log.Println("shutting down")
	os.Exit(code)
}

func Fail(err error) {
	log.Fatal(err)
}
