// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the httpexec command tree.
package cli

import (
	"io"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	chunks     bool
	retries    int
	noCache    bool
	verbose    bool
}

// New returns the root command. Response bodies are written to stdout;
// status lines and diagnostics go to stderr.
func New(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "httpexec",
		Short:         "Execute HTTP requests with rate limiting, retries and backoff",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	pf.BoolVar(&opts.chunks, "chunks", false, "stream the body as it is received")
	pf.IntVar(&opts.retries, "retries", -1, "maximum retries (default from configuration)")
	pf.BoolVar(&opts.noCache, "no-cache", false, "bypass the platform cache")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log request lifecycle to stderr")

	root.AddCommand(newGetCmd(opts))
	root.AddCommand(newPostCmd(opts))
	return root
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get URL",
		Short: "Issue a GET request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "GET", args[0], "", nil)
		},
	}
}

func newPostCmd(opts *options) *cobra.Command {
	var data, contentType string
	cmd := &cobra.Command{
		Use:   "post URL",
		Short: "Issue a POST request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "POST", args[0], contentType, data)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringVar(&contentType, "content-type", "application/octet-stream", "request content type")
	return cmd
}
