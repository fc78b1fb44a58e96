// Package eventbus provides a simple publish/subscribe event bus. The session
// store announces sign-in and sign-out through it, and other components can
// optionally subscribe.
package eventbus

import (
	"context"
)

// Constant name for identifying the eventbus plugin.
const PluginName = "eventbus"

// Handler is called for each message published to a subscribed topic.
type Handler func(context.Context, *Message) error

// Message wraps published data with delivery metadata.
type Message struct {
	ID    string
	Topic string
	Data  any
}

// Plugin registers an eventbus with the dashboard app for other plugins to
// use.
func Plugin(eb EventBus) *EventBusPlugin {
	return &EventBusPlugin{EventBus: eb}
}

// EventBusPlugin provides access to an event bus for plugins and components to
// communicate with each other.
type EventBusPlugin struct {
	EventBus
}

// From dashboard.Plugin.
func (p *EventBusPlugin) Name() string {
	return PluginName
}

// From dashboard.ShutdownPlugin.
func (p *EventBusPlugin) Shutdown(ctx context.Context) error {
	return p.EventBus.Shutdown(ctx)
}

// EventBus provides a simple publish/subscribe interface.
type EventBus interface {
	// Subscribe to a topic. Handlers may be called concurrently.
	Subscribe(topic string, handler Handler)

	// Publish sends data to every subscriber of topic. ctx is only used for
	// logging; handlers receive the bus's own context.
	Publish(ctx context.Context, topic string, data any)

	// Wait for the bus to finish processing all published messages.
	Wait(ctx context.Context) error

	// Shutdown stops accepting messages and waits for pending ones.
	Shutdown(ctx context.Context) error
}
