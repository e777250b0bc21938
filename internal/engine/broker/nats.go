package broker

import (
	"github.com/nats-io/nats.go"

	configpkg "github.com/subwire/subwire/internal/engine/config"
)

// Conn adapts a *nats.Conn to the Client interface.
type Conn struct {
	nc *nats.Conn
}

// Wrap adapts an externally managed NATS connection. The caller keeps
// ownership: the engine never closes it.
func Wrap(nc *nats.Conn) *Conn {
	if nc == nil {
		panic("subwire: nats connection cannot be nil")
	}
	return &Conn{nc: nc}
}

// Connect dials the broker described by cfg and wraps the resulting
// connection. Closing the connection again is the caller's job.
func Connect(cfg *configpkg.Config) (*Conn, error) {
	if err := configpkg.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnectTimeout))
	}
	if !cfg.AllowReconnect {
		opts = append(opts, nats.NoReconnect())
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}
	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}
	if cfg.PingInterval > 0 {
		opts = append(opts, nats.PingInterval(cfg.PingInterval))
	}
	if cfg.MaxPingsOut > 0 {
		opts = append(opts, nats.MaxPingsOutstanding(cfg.MaxPingsOut))
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredentialsFile))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	return &Conn{nc: nc}, nil
}

// NATS exposes the wrapped connection for callers that need client features
// beyond the engine boundary, such as request helpers.
func (c *Conn) NATS() *nats.Conn { return c.nc }

func (c *Conn) Subscribe(subject, queue string, handler Handler) (Subscription, error) {
	if queue == "" {
		return c.nc.Subscribe(subject, nats.MsgHandler(handler))
	}
	return c.nc.QueueSubscribe(subject, queue, nats.MsgHandler(handler))
}

func (c *Conn) Publish(subject string, data []byte, header nats.Header) error {
	if len(header) == 0 {
		return c.nc.Publish(subject, data)
	}
	return c.nc.PublishMsg(&nats.Msg{Subject: subject, Data: data, Header: header})
}

func (c *Conn) Flush() error { return c.nc.Flush() }
