package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/uri"
)

type uriOptions struct {
	paths    []string
	params   []string
	relative bool
}

func newURICommand() *cobra.Command {
	opts := &uriOptions{}
	cmd := &cobra.Command{
		Use:   "uri BASE",
		Short: "Build a URI with httpkit's encoding rules",
		Long: `Append path segments and query parameters to BASE and print the encoded
result. Values are given unencoded.

  httpkit uri https://api.example.com/v1 --path "users/jane doe" --param q=a&b
  httpkit uri --relative items --param page=2`,
		Args:              usage(cobra.ExactArgs(1)),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildURI(args[0], opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
			return err
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&opts.paths, "path", nil, "path to append (repeatable)")
	f.StringArrayVar(&opts.params, "param", nil, "query parameter name=value (repeatable)")
	f.BoolVar(&opts.relative, "relative", false, "treat BASE as a relative reference")
	return cmd
}

func buildURI(base string, opts *uriOptions) (string, error) {
	params := make([][2]string, 0, len(opts.params))
	for _, p := range opts.params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return "", errors.InvalidArgument("parameter %q is not in name=value form", p)
		}
		params = append(params, [2]string{name, value})
	}

	if opts.relative {
		ref, err := url.Parse(base)
		if err != nil {
			return "", errors.InvalidArgument("invalid relative reference %q", base).WithCause(err)
		}
		b := uri.RelativeFrom(ref)
		for _, p := range opts.paths {
			b.AppendPath(p)
		}
		for _, p := range params {
			b.AddParameter(p[0], p[1])
		}
		u, err := b.Build()
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}

	b := uri.Parse(base)
	for _, p := range opts.paths {
		b.AppendPath(p)
	}
	for _, p := range params {
		b.AddParameter(p[0], p[1])
	}
	u, err := b.Build()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
