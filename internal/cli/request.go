package cli

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/httpkit/body"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/uri"
)

const defaultClient = "default"

type requestOptions struct {
	headers         []string
	data            string
	dataFile        string
	stdin           bool
	client          string
	followRedirects bool
	retries         int
	include         bool
	fail            bool
}

func newRequestCommand(a *app) *cobra.Command {
	opts := &requestOptions{}
	cmd := &cobra.Command{
		Use:   "request [flags] METHOD URL",
		Short: "Send a request and print the response body",
		Long: `Send a request through a configured client and print the response body.

URL may be a path relative to the client's base_url. Without --client a
client named "default" is used, created with the service retry policy when
the configuration does not declare one.`,
		Args: usage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, a, opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	f.StringVarP(&opts.data, "data", "d", "", "request body")
	f.StringVar(&opts.dataFile, "data-file", "", "read the request body from a file")
	f.BoolVar(&opts.stdin, "stdin", false, "stream the request body from standard input (not retried)")
	f.StringVar(&opts.client, "client", defaultClient, "configured client to use")
	f.BoolVar(&opts.followRedirects, "follow-redirects", true, "follow redirects")
	f.IntVar(&opts.retries, "retries", -1, "retries after the first attempt (default: client retry policy)")
	f.BoolVarP(&opts.include, "include", "i", false, "print the status line and headers")
	f.BoolVar(&opts.fail, "fail", false, "exit with an error on 4xx and 5xx responses")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file", "stdin")
	return cmd
}

func runRequest(cmd *cobra.Command, a *app, opts *requestOptions, method, target string) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Stop(cmd.Context()) }()

	client, err := reg.Client(opts.client)
	if err != nil && opts.client == defaultClient {
		client, err = reg.Register(defaultClient, httpclient.Config{Retry: a.cfg.Retry})
	}
	if err != nil {
		return err
	}

	u, err := resolveTarget(client, target)
	if err != nil {
		return err
	}
	b := httpclient.NewBuilder().
		SetMethod(strings.ToUpper(method)).
		SetURI(u).
		SetFollowRedirects(opts.followRedirects)
	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return errors.InvalidArgument("header %q is not in \"Name: value\" form", h)
		}
		b.AddHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	switch {
	case cmd.Flags().Changed("data"):
		b.SetBodySource(body.String(opts.data))
	case opts.dataFile != "":
		b.SetBodySource(body.File(opts.dataFile))
	case opts.stdin:
		b.SetBodySource(body.FromReader(cmd.InOrStdin()))
	}
	req, err := b.Build()
	if err != nil {
		return err
	}

	driver := client.RetryDriver()
	if opts.retries >= 0 {
		driver = driver.MaxAttempts(opts.retries + 1)
	}
	resp, err := httpclient.ExecuteWithRetry(cmd.Context(), client, driver, req, httpclient.StringHandler())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.include {
		writeHead(out, resp)
	}
	if _, err := io.WriteString(out, resp.Body); err != nil {
		return err
	}
	if opts.fail && resp.StatusCode >= 400 {
		return errors.UnexpectedStatus(resp.StatusCode, nil)
	}
	return nil
}

// resolveTarget accepts an absolute URL, or a path resolved against the
// client's base URL.
func resolveTarget(client *httpclient.Client, target string) (*url.URL, error) {
	if strings.Contains(target, "://") || client.Config().BaseURL == "" {
		return uri.Parse(target).Build()
	}
	ref, err := url.Parse(target)
	if err != nil {
		return nil, errors.InvalidArgument("invalid url %q", target).WithCause(err)
	}
	b := client.URI(ref.Path)
	if ref.RawQuery != "" {
		base, err := b.Build()
		if err != nil {
			return nil, err
		}
		query := base.RawQuery
		if query != "" {
			query += "&"
		}
		b.ReplaceRawQuery(query + ref.RawQuery)
	}
	return b.Build()
}

func writeHead(w io.Writer, resp httpclient.StringResponse) {
	_, _ = fmt.Fprintf(w, "%d %s\n", resp.StatusCode, resp.StatusMessage)
	resp.Headers.Each(func(name httpclient.HeaderName, value string) {
		_, _ = fmt.Fprintf(w, "%s: %s\n", name, value)
	})
	_, _ = fmt.Fprintln(w)
}
