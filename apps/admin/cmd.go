package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/idview/core"
	"github.com/trezcool/idview/core/application"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// studentAPI is the part of the student API client the CLI uses.
type studentAPI interface {
	application.Submitter
	Health(ctx context.Context) error
}

type commandLine struct {
	conf   *core.Config
	client studentAPI
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  token -student ID [-username USERNAME] [-email EMAIL] - print an access token for a student")
	fmt.Fprintln(cli.out, "  health - check the student API")
	fmt.Fprintln(cli.out, "  submit -draft FILE - submit the ID application described in a JSON file")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenStudent := tokenCmd.String("student", "", "The student's registration number, eg: S110/2099/23")
	tokenUname := tokenCmd.String("username", "", "The student's username.")
	tokenEmail := tokenCmd.String("email", "", "The student's email.")

	submitCmd := flag.NewFlagSet("submit", flag.ContinueOnError)
	submitCmd.SetOutput(cli.out)
	submitDraft := submitCmd.String("draft", "", "JSON file holding the application fields and document paths. The access token will be prompted next.")

	switch args[1] {
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenStudent == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(core.Person{ID: *tokenStudent, Username: *tokenUname, Email: *tokenEmail})
	case "health":
		return cli.health()
	case "submit":
		if err := submitCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *submitDraft == "" {
			submitCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter access token:")
		token, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(token) == 0 {
			submitCmd.Usage()
			return errHelp
		}
		return cli.submit(*submitDraft, string(token))
	default:
		cli.printUsage()
		return errHelp
	}
}
