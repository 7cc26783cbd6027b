package main

import (
	"log"
	"os"

	"github.com/masomo-lms/visibility/core"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cli := newCommandLine(core.NewConfig(), os.Stdout)
	defer func() {
		if err := cli.close(); err != nil {
			logger.Printf("closing database: %v", err)
		}
	}()

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		_ = cli.close()
		os.Exit(1)
	}
}
