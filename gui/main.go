package main

import (
	"flag"
	"log"
)

func main() {
	flag.Parse()

	a := NewApp()

	if flag.NArg() > 0 {
		if err := a.LoadELFFile(flag.Arg(0)); err != nil {
			log.Fatalf("Failed to load ELF: %v", err)
		}
	}

	a.Run()
}
