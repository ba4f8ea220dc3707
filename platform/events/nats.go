package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// HeaderEventName carries the unprefixed event name on forwarded messages.
const HeaderEventName = "Pipeline-Event"

// NATSForwarder republishes bus events as JSON on NATS subjects of the form
// "<prefix>.<event name>" so services outside this process can follow them.
// The event id is sent as Nats-Msg-Id, letting a JetStream consumer dedupe.
type NATSForwarder struct {
	conn   *nats.Conn
	prefix string
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// NewNATSForwarder creates a forwarder on an established connection.
func NewNATSForwarder(conn *nats.Conn, prefix string) *NATSForwarder {
	return &NATSForwarder{conn: conn, prefix: strings.Trim(prefix, ".")}
}

// Subject returns the NATS subject an event is published on.
func (f *NATSForwarder) Subject(event Event) string {
	if f.prefix == "" {
		return event.EventName()
	}
	return f.prefix + "." + event.EventName()
}

// Handle implements Handler.
func (f *NATSForwarder) Handle(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}
	msg := &nats.Msg{Subject: f.Subject(event), Data: data, Header: nats.Header{}}
	msg.Header.Set(nats.MsgIdHdr, event.EventID().String())
	msg.Header.Set(HeaderEventName, event.EventName())
	if err := f.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventName(), err)
	}
	return nil
}

// Attach subscribes the forwarder to every event on bus.
func (f *NATSForwarder) Attach(bus Bus) {
	bus.Subscribe(AllEvents, f)
}
