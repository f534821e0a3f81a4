package client

import "github.com/tessera-wm/core/alloc"

// ClientID identifies one connected client within a Registry, distinct
// from any protocol object id (§3 Client is itself addressed by an
// opaque handle wherever the compositor needs to refer to "the client
// that owns this surface" without holding a *Client directly).
type ClientID int

// Registry tracks every currently connected Client, keyed by ClientID,
// using the same bitm-backed slot-reuse idiom as alloc.Map (§4.E).
type Registry struct {
	m alloc.Map[ClientID, *Client]
}

// Add inserts c and returns its ClientID.
func (r *Registry) Add(c *Client) ClientID { return r.m.Insert(c) }

// Remove deletes id from the registry. The caller is responsible for
// closing the underlying transport fd and eventfd first.
func (r *Registry) Remove(id ClientID) { r.m.Remove(id) }

// Get returns the Client for id, if still connected.
func (r *Registry) Get(id ClientID) (*Client, bool) { return r.m.Get(id) }

// Len returns the number of connected clients.
func (r *Registry) Len() int { return r.m.Len() }

// Each calls f for every connected client.
func (r *Registry) Each(f func(ClientID, *Client)) { r.m.Each(f) }
