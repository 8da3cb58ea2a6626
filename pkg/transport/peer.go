// Package transport declares the peer signaling collaborators that carry
// metadata requests between processes. metagate does not implement a
// transport; embedders supply one.
package transport

import "context"

// Signal is one message exchanged between peers.
type Signal struct {
	// Type names the message, for example "offer" or "metadata-request".
	Type string `json:"type"`
	// From is the sender's peer ID. Set by the transport on receipt.
	From string `json:"from,omitempty"`
	// Payload is opaque to the transport.
	Payload []byte `json:"payload,omitempty"`
}

// Handler is called for every signal received on a channel.
type Handler func(ctx context.Context, sig Signal)

// PeerChannel sends and receives signals between peers.
type PeerChannel interface {
	// Send delivers sig to a single peer.
	Send(ctx context.Context, peerID string, sig Signal) error
	// Broadcast delivers sig to every connected peer.
	Broadcast(ctx context.Context, sig Signal) error
	// OnSignal registers h for incoming signals. Later registrations replace
	// earlier ones.
	OnSignal(h Handler)
}
