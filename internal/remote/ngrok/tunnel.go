package ngrok

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"golang.ngrok.com/ngrok"
	ngrokcfg "golang.ngrok.com/ngrok/config"
)

const closeTimeout = 5 * time.Second

// Options configure the public endpoint for the control panel. Only
// LocalAddr is mandatory; an empty Authtoken falls back to the
// NGROK_AUTHTOKEN environment variable.
type Options struct {
	LocalAddr     string
	Authtoken     string
	Region        string
	Domain        string
	BasicAuthUser string
	BasicAuthPass string
}

func (o Options) endpoint() ngrokcfg.Tunnel {
	var eps []ngrokcfg.HTTPEndpointOption
	if o.Domain != "" {
		eps = append(eps, ngrokcfg.WithDomain(o.Domain))
	}
	if o.BasicAuthUser != "" && o.BasicAuthPass != "" {
		eps = append(eps, ngrokcfg.WithBasicAuth(o.BasicAuthUser, o.BasicAuthPass))
	}
	return ngrokcfg.HTTPEndpoint(eps...)
}

func (o Options) connectOptions() []ngrok.ConnectOption {
	var opts []ngrok.ConnectOption
	switch {
	case o.Authtoken != "":
		opts = append(opts, ngrok.WithAuthtoken(o.Authtoken))
	case os.Getenv("NGROK_AUTHTOKEN") != "":
		opts = append(opts, ngrok.WithAuthtokenFromEnv())
	}
	if o.Region != "" {
		opts = append(opts, ngrok.WithRegion(o.Region))
	}
	return opts
}

// Tunnel forwards an ngrok HTTP endpoint to the local control panel so the
// bot can be supervised away from the machine running the game.
type Tunnel struct {
	forwarder ngrok.Forwarder
}

func Start(ctx context.Context, opts Options) (*Tunnel, error) {
	backend, err := url.Parse(opts.LocalAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid panel address %q: %w", opts.LocalAddr, err)
	}
	if backend.Scheme != "http" && backend.Scheme != "https" {
		return nil, fmt.Errorf("panel address %q must be an http(s) url", opts.LocalAddr)
	}

	fwd, err := ngrok.ListenAndForward(ctx, backend, opts.endpoint(), opts.connectOptions()...)
	if err != nil {
		return nil, fmt.Errorf("error starting tunnel: %w", err)
	}

	return &Tunnel{forwarder: fwd}, nil
}

func (t *Tunnel) URL() string {
	if t == nil || t.forwarder == nil {
		return ""
	}
	return t.forwarder.URL()
}

func (t *Tunnel) Close() error {
	if t == nil || t.forwarder == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return t.forwarder.CloseWithContext(ctx)
}
