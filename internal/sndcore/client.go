package sndcore

import "github.com/google/uuid"

// ClientKillFunc is the hook a client's originating module supplies,
// invoked by kill-client and by the "last client disconnected" exit-idle
// path.
type ClientKillFunc func()

// Client is a connected protocol session. Ownership: the core owns the
// Client record itself, but the kill callback reaches back into the
// module that accepted the connection.
type Client struct {
	Index uint32
	Name string
	ID string // uuid assigned by NewClient; reported by the HTTP API
	OwnerModule *Module

	kill ClientKillFunc
}

// NewClient builds a client record with a fresh uuid identity.
func NewClient(name string, owner *Module, kill ClientKillFunc) *Client {
	return &Client{
 Name: name,
 ID: uuid.NewString(),
 OwnerModule: owner,
 kill: kill,
	}
}

// Kill invokes the client's kill hook, if any.
func (c *Client) Kill() {
	if c.kill != nil {
 c.kill()
	}
}
