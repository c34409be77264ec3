package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/bc-dunia/mcpstress/internal/transport"
)

func init() {
	// Lets --url (and, later, other connection flags) be supplied as
	// MCPSTRESS_URL etc. instead of on the command line, the way a CI
	// pipeline injects a target endpoint without putting it in shell history.
	viper.SetEnvPrefix("MCPSTRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// connectOptions is the subset of flags every subcommand that opens an MCP
// session shares (run/diagnose/discover), per spec.md's "stdio command-line
// after --, HTTP URL + legacy-SSE flag + headers" run-options list.
type connectOptions struct {
	url                  string
	legacySSE            bool
	headers              map[string]string
	allowPrivateNetworks bool
	tlsSkipVerify        bool
	requestTimeoutMs     int
	command              []string
}

func (o connectOptions) newTransportFactory() (func() (transport.Transport, error), error) {
	kind, cfg, err := o.buildConfig()
	if err != nil {
		return nil, err
	}
	return func() (transport.Transport, error) {
		return transport.New(kind, cfg)
	}, nil
}

func (o connectOptions) buildConfig() (transport.Kind, transport.Config, error) {
	cfg := transport.Config{
		Headers:              o.headers,
		TLSSkipVerify:        o.tlsSkipVerify,
		AllowPrivateNetworks: o.allowPrivateNetworks,
		RequestTimeoutMs:     o.requestTimeoutMs,
		RedirectPolicy:       transport.RedirectPolicy{Mode: "same_origin", MaxRedirects: 5},
	}

	url := o.url
	if url == "" {
		url = viper.GetString("url")
	}

	switch {
	case url != "":
		cfg.URL = url
		if o.legacySSE {
			return transport.KindSSE, cfg, nil
		}
		return transport.KindStreamableHTTP, cfg, nil
	case len(o.command) > 0:
		cfg.Command = o.command
		return transport.KindStdio, cfg, nil
	default:
		return "", transport.Config{}, fmt.Errorf("one of --url or a stdio command after -- is required")
	}
}

// splitArgsOnDashDash returns the stdio command after a literal "--" (the
// args from index dashAt on), or nil when there is none. cobra already
// strips the `--` itself and reports its position via ArgsLenAtDash, so
// callers pass cmd.ArgsLenAtDash() through.
func splitArgsOnDashDash(args []string, dashAt int) []string {
	if dashAt < 0 || dashAt >= len(args) {
		return nil
	}
	return args[dashAt:]
}
