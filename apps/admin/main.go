package main

import (
	"log"
	"os"

	"github.com/trezcool/idview/core"
	"github.com/trezcool/idview/services/studentapi"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.Conf

	// start CLI
	cli := commandLine{
		conf:   conf,
		client: studentapi.NewClient(conf.StudentAPI.BaseURL, conf.StudentAPI.Timeout),
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
