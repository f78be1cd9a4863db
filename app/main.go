package main

import (
	"flag"
	"log"
	"os"

	httpserver "github.com/klevente/codecrafters-http-server"
)

const listenAddr = "127.0.0.1:4221"

var directory = flag.String("directory", "test-files", "base directory for /files/ requests")

func main() {
	flag.Parse()

	if stat, err := os.Stat(*directory); err != nil || !stat.IsDir() {
		log.Fatalf("base directory %q is not a directory", *directory)
	}

	s := httpserver.Server{
		Handler: httpserver.Routes(*directory),
	}

	log.Printf("listening on %s, serving files from %s", listenAddr, *directory)
	log.Fatal(s.ListenAndServe(listenAddr))
}
