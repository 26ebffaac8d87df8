package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (cli *commandLine) health() error {
	ctx, cancel := context.WithTimeout(context.Background(), cli.conf.StudentAPI.Timeout)
	defer cancel()

	if err := cli.client.Health(ctx); err != nil {
		return errors.Wrap(err, "checking student API health")
	}
	fmt.Fprintf(cli.out, "student API at %s is up\n", cli.conf.StudentAPI.BaseURL)
	return nil
}
