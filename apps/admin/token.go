package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/idview/apps/api/echo"
	"github.com/trezcool/idview/core"
)

func (cli *commandLine) token(p core.Person) error {
	if err := core.Validate.Var(p.ID, core.RegNumberTag); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			return errors.Errorf("%q: %s", p.ID, vErrs[0].Translate(core.Translator))
		}
		return errors.Wrap(err, "validating registration number")
	}
	token, err := echoapi.GenerateToken(echoapi.GetStudentClaims(p))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
