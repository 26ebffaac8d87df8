package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/idview/core"
	"github.com/trezcool/idview/core/application"
	"github.com/trezcool/idview/services/studentapi"
)

// draftFile describes an application: text fields, and document paths relative to the file.
type draftFile struct {
	Fields map[string]string `json:"fields"`
	Files  map[string]string `json:"files"`
}

func (cli *commandLine) submit(path, token string) error {
	df, err := readDraftFile(path)
	if err != nil {
		return err
	}

	w := application.NewWizard(cli.client, cli.conf.Upload.MaxSize)
	for _, name := range sortedKeys(df.Fields) {
		if err = w.SetField(name, df.Fields[name]); err != nil {
			return errors.Wrapf(err, "setting %s", name)
		}
	}
	dir := filepath.Dir(path)
	for _, name := range sortedKeys(df.Files) {
		f, err := openDocument(filepath.Join(dir, df.Files[name]), cli.conf.Upload.MaxSize)
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
		if err = w.SetFile(name, f); err != nil {
			return cli.reportInvalid(err)
		}
	}

	for w.Step() < application.LastStep {
		if err = w.Advance(); err != nil {
			return cli.reportInvalid(err)
		}
	}
	state := w.State()
	for _, name := range sortedKeys(state.Current.Warnings) {
		fmt.Fprintf(cli.out, "warning: %s\n", state.Current.Warnings[name])
	}

	ctx := studentapi.WithToken(context.Background(), token)
	receipt, err := w.Submit(ctx)
	if err != nil {
		var subErr *application.SubmissionError
		if errors.As(err, &subErr) {
			return errors.Wrap(subErr.Err, subErr.Error())
		}
		return err
	}
	fmt.Fprintln(cli.out, receipt.Message)
	return nil
}

// reportInvalid prints every field error of a validation failure.
func (cli *commandLine) reportInvalid(err error) error {
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		return err
	}
	for _, fErr := range vErr.Fields {
		fmt.Fprintf(cli.out, "  %s: %s\n", fErr.Field, fErr.Error)
	}
	return vErr
}

func readDraftFile(path string) (draftFile, error) {
	var df draftFile
	data, err := os.ReadFile(path)
	if err != nil {
		return df, errors.Wrap(err, "reading draft file")
	}
	if err = json.Unmarshal(data, &df); err != nil {
		return df, errors.Wrap(err, "decoding draft file")
	}
	return df, nil
}

func openDocument(path string, maxSize int64) (*application.File, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return application.NewFile(path, src, maxSize)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
