package httpsession

import "github.com/naia-go/naia/transport"

var (
	_ transport.Client = (*Client)(nil)
	_ transport.Server = (*Server)(nil)
)
