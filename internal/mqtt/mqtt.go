// Package mqtt publishes ingestion events to a broker so dashboards and
// automations can react to observations without polling the API.
package mqtt

import (
	"crypto/tls"
	"log/slog"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the surface the ingestion pipeline needs. A nil broker URL in
// the config swaps in Noop, and tests provide fakes.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Noop discards every publish. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(string, []byte) error { return nil }

type Client struct {
	cli mqtt.Client
}

func New(brokerURL string) (*Client, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	opts := mqtt.NewClientOptions()
	server := u.Host
	if u.Scheme == "mqtt" || u.Scheme == "tcp" {
		server = "tcp://" + server
	} else if u.Scheme == "ssl" || u.Scheme == "tls" {
		server = "ssl://" + server
	} else if u.Scheme == "ws" || u.Scheme == "wss" {
		server = u.Scheme + "://" + server + u.Path
	}
	opts.AddBroker(server)
	opts.SetClientID("sigint-" + time.Now().Format("150405.000"))
	opts.OnConnect = func(c mqtt.Client) { slog.Info("mqtt connected", "broker", brokerURL) }
	opts.OnConnectionLost = func(c mqtt.Client, err error) { slog.Error("mqtt connection lost", "error", err) }
	if u.User != nil {
		pw, _ := u.User.Password()
		opts.SetUsername(u.User.Username())
		opts.SetPassword(pw)
	}
	if u.Scheme == "ssl" || u.Scheme == "tls" || u.Scheme == "wss" {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true}) // TODO: tighten
	}
	cli := mqtt.NewClient(opts)
	if t := cli.Connect(); t.Wait() && t.Error() != nil {
		return nil, t.Error()
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Publish(topic string, payload []byte) error {
	t := c.cli.Publish(topic, 0, false, payload)
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	return nil
}

func (c *Client) Disconnect() {
	c.cli.Disconnect(250)
}
