// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build ignore

// Command gzinspect prints the member headers and footers of a gzip file
// without decompressing to stdout, for debugging malformed or unusual
// streams.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"

	"github.com/colinmarc/gunzip/internal/deflate"
	"github.com/colinmarc/gunzip/internal/gzipframe"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/must"
	"v.io/x/lib/cmd/flagvar"
)

var commandline struct {
	InputFile string `cmd:"input,,'input file, s3 path, or url'"`
}

func init() {
	must.Nil(flagvar.RegisterFlagsInStruct(flag.CommandLine, "cmd", &commandline,
		nil, nil))
}

func main() {
	ctx := context.Background()
	flag.Parse()

	f, err := file.Open(ctx, commandline.InputFile)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer f.Close(ctx)

	gz := gzipframe.NewReader(f.Reader(ctx))
	member := 0
	for {
		empty, err := gz.IsEmpty()
		if err != nil {
			log.Fatalf("checking for more members: %v", err)
		}
		if empty {
			break
		}

		header, err := gz.ReadHeader()
		if err != nil {
			log.Fatalf("member %d: reading header: %v", member, err)
		}
		fmt.Printf("=== member %d ===\n", member)
		fmt.Printf("method:   %v\n", header.CompressionMethod)
		fmt.Printf("name:     %q\n", header.Name)
		fmt.Printf("comment:  %q\n", header.Comment)
		fmt.Printf("mtime:    %d\n", header.ModificationTime)
		fmt.Printf("os:       %d\n", header.OS)
		fmt.Printf("is_text:  %v\n", header.IsText)

		dr := deflate.NewReader(gz.Underlying(), ioutil.Discard)
		if err := dr.Decode(); err != nil {
			log.Fatalf("member %d: decoding deflate stream: %v", member, err)
		}
		dr.Underlying()

		footer, err := gz.ReadFooter(dr.ByteCount(), dr.CRC32())
		if err != nil {
			log.Fatalf("member %d: reading footer: %v", member, err)
		}
		fmt.Printf("size:     %d\n", footer.ISIZE)
		fmt.Printf("crc32:    %08x\n", footer.CRC32)
		member++
	}
}
