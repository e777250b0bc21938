// Package subwire binds callback functions to NATS subjects and extracts
// their arguments from inbound messages. Subject patterns may contain named
// placeholders ("pub.sensor.{id}.temperature"); at registration time each
// pattern is compiled into a wildcard subscription and each callback
// parameter is resolved into a fixed binding rule, so that dispatching a
// message interprets a static table instead of introspecting the callback.
//
// A callback is an ordinary function. Its parameters can receive the raw
// message (*nats.Msg or any), the payload bytes ([]byte), the broker client
// (subwire.Client), the inbound subject or reply subject (subwire.Subject,
// subwire.Reply), a placeholder value (a string parameter named after a
// {placeholder}), or a dependency (Depends, Token, Header, Field used as the
// parameter's default). Unresolvable parameters and cyclic dependency graphs
// fail at registration, before any traffic flows.
//
// # Response modes
//
// Router.Subscribe is fire-and-forget: return values are ignored and
// failures only affect the one message that caused them.
// Router.SubscribeAndReply encodes the return value and publishes it to the
// requester's reply subject; on encoder failure no reply is sent.
// Router.Service always publishes exactly one reply with Status and
// Content-Type headers, reporting a diagnostic body on failure so requesters
// never wait out their timeout on internal errors.
//
// # Lifecycle
//
// Routers group registrations under a shared subject prefix and default
// encoder. An Engine subscribes every registration on StartAll and tears
// them down on DrainAll, waiting for in-flight dispatches up to a grace
// period. The engine never manages connections: it is handed a Client
// (Wrap around an existing *nats.Conn, Connect from a Config, or
// NewMemoryClient for tests) and only uses its subscribe and publish
// operations.
package subwire
