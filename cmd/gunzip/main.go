// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command gunzip decompresses gzip files or streams. Files may be local,
// on S3, or fetched over HTTP/HTTPS.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"cloudeng.io/errors"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff/v3"
	"github.com/colinmarc/gunzip"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"golang.org/x/crypto/ssh/terminal"
)

type CommonFlags struct {
	Verbose bool `subcmd:"verbose,false,verbose debug/trace information"`
	Strict  bool `subcmd:"strict,false,reject gzip headers that set reserved FLG bits"`
}

type catFlags struct {
	CommonFlags
}

type unzipFlags struct {
	CommonFlags
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
}

var cmdSet *subcmd.CommandSet

func init() {
	catCmd := subcmd.NewCommand("cat",
		subcmd.MustRegisterFlagStruct(&catFlags{}, nil, nil),
		cat, subcmd.AtLeastNArguments(0))
	catCmd.Document(`decompress gzip files or stdin to stdout. Files may be local, on S3 or a URL.`)

	unzipCmd := subcmd.NewCommand("unzip",
		subcmd.MustRegisterFlagStruct(&unzipFlags{}, nil, nil),
		unzip, subcmd.ExactlyNumArguments(1))
	unzipCmd.Document(`decompress a single gzip file to a named output or stdout.`)

	cmdSet = subcmd.NewCommandSet(catCmd, unzipCmd)
	cmdSet.Document(`decompress gzip files. Files may be local, on S3 or a URL.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

func optsFromCommonFlags(cl *CommonFlags) []gunzip.Option {
	var opts []gunzip.Option
	if cl.Strict {
		opts = append(opts, gunzip.WithStrictHeader())
	}
	if cl.Verbose {
		opts = append(opts, gunzip.WithLogger(log.New(os.Stderr, "gunzip: ", log.LstdFlags)))
	} else {
		opts = append(opts, gunzip.WithLogger(log.New(io.Discard, "", 0)))
	}
	return opts
}

// openFileOrURL opens a local, S3, or HTTP(S) source. Failed HTTP(S)
// requests are retried with exponential backoff; local and S3 opens are
// tried once.
func openFileOrURL(ctx context.Context, name string) (io.Reader, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		var resp *http.Response
		op := func() error {
			r, err := http.Get(name)
			if err != nil {
				return err
			}
			resp = r
			return nil
		}
		if err := backoff.Retry(op, backoff.NewExponentialBackOff()); err != nil {
			return nil, nil, err
		}
		return resp.Body, func(context.Context) error { return resp.Body.Close() }, nil
	}

	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Reader(ctx), f.Close, nil
}

func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout, func(context.Context) error { return nil }, nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}

func cat(ctx context.Context, values interface{}, args []string) error {
	cl := values.(*catFlags)
	opts := optsFromCommonFlags(&cl.CommonFlags)

	if len(args) == 0 {
		return gunzip.Decompress(os.Stdout, os.Stdin, opts...)
	}

	errs := &errors.M{}
	for _, inputFile := range args {
		rd, cleanup, err := openFileOrURL(ctx, inputFile)
		if err != nil {
			errs.Append(fmt.Errorf("%s: %w", inputFile, err))
			continue
		}
		err = gunzip.Decompress(os.Stdout, rd, opts...)
		errs.Append(err)
		errs.Append(cleanup(ctx))
	}
	return errs.Err()
}

func unzip(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)

	cl := values.(*unzipFlags)
	opts := optsFromCommonFlags(&cl.CommonFlags)

	rd, readerCleanup, err := openFileOrURL(ctx, args[0])
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	wr, writerCleanup, err := createFile(ctx, cl.OutputFile)
	if err != nil {
		return err
	}

	isTTY := terminal.IsTerminal(int(os.Stdout.Fd()))
	var bar *progressbar.ProgressBar
	if cl.ProgressBar && (len(cl.OutputFile) > 0 || !isTTY) {
		barWr := os.Stdout
		if !isTTY {
			barWr = os.Stderr
		}
		bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(barWr),
			progressbar.OptionSetPredictTime(false))
		opts = append(opts, gunzip.WithProgress(func(p gunzip.Progress) {
			bar.Add64(int64(p.BytesOut))
		}))
	}

	errs := &errors.M{}
	err = gunzip.Decompress(wr, rd, opts...)
	errs.Append(err)
	errs.Append(writerCleanup(ctx))

	if bar != nil {
		fmt.Fprintln(os.Stdout)
	}

	return errs.Err()
}
