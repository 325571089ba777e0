// Package gateway owns the realtime side of the server: which connections
// are alive, which rooms they sit in, and how packets fan out to them.
package gateway

import (
	"sync"

	"github.com/samber/lo"

	"github.com/banterhq/banter/pkg/proto"
)

// Gateway is constructed once in main and injected into every service that
// emits packets. Connections join rooms; pushes address accounts or rooms.
type Gateway struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	accounts map[uint][]*Client
	rooms    map[string]map[string]*Client
	joined   map[string]map[string]struct{}
}

func New() *Gateway {
	return &Gateway{
		clients:  make(map[string]*Client),
		accounts: make(map[uint][]*Client),
		rooms:    make(map[string]map[string]*Client),
		joined:   make(map[string]map[string]struct{}),
	}
}

func (g *Gateway) Register(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[c.ID] = c
	g.accounts[c.Account.ID] = append(g.accounts[c.Account.ID], c)
	g.joined[c.ID] = map[string]struct{}{
		AccountRoom(c.Account.ID): {},
	}
	if g.rooms[AccountRoom(c.Account.ID)] == nil {
		g.rooms[AccountRoom(c.Account.ID)] = make(map[string]*Client)
	}
	g.rooms[AccountRoom(c.Account.ID)][c.ID] = c
}

func (g *Gateway) Unregister(c *Client) {
	g.mu.Lock()
	for room := range g.joined[c.ID] {
		g.leaveLocked(c, room)
	}
	delete(g.joined, c.ID)
	delete(g.clients, c.ID)
	g.accounts[c.Account.ID] = lo.Filter(g.accounts[c.Account.ID], func(item *Client, index int) bool {
		return item.ID != c.ID
	})
	if len(g.accounts[c.Account.ID]) == 0 {
		delete(g.accounts, c.Account.ID)
	}
	g.mu.Unlock()
	c.Kill()
}

func (g *Gateway) Join(c *Client, room string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.clients[c.ID]; !ok {
		return
	}
	if g.rooms[room] == nil {
		g.rooms[room] = make(map[string]*Client)
	}
	g.rooms[room][c.ID] = c
	g.joined[c.ID][room] = struct{}{}
}

func (g *Gateway) Leave(c *Client, room string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leaveLocked(c, room)
	if set, ok := g.joined[c.ID]; ok {
		delete(set, room)
	}
}

func (g *Gateway) leaveLocked(c *Client, room string) {
	if members, ok := g.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(g.rooms, room)
		}
	}
}

// IsOnline reports whether the account holds at least one live connection.
func (g *Gateway) IsOnline(accountId uint) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.accounts[accountId]) > 0
}

func (g *Gateway) PushUser(accountId uint, pkt proto.Packet) {
	data := pkt.Marshal()
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, client := range g.accounts[accountId] {
		client.push(data)
	}
}

func (g *Gateway) PushUserBatch(accountIds []uint, pkt proto.Packet) {
	data := pkt.Marshal()
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, id := range accountIds {
		for _, client := range g.accounts[id] {
			client.push(data)
		}
	}
}

func (g *Gateway) PushRoom(room string, pkt proto.Packet) {
	data := pkt.Marshal()
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, client := range g.rooms[room] {
		client.push(data)
	}
}

// PushRoomExcept fans out to the room, skipping every connection of the
// excluded account, not just the one that triggered the push.
func (g *Gateway) PushRoomExcept(room string, exceptAccountId uint, pkt proto.Packet) {
	data := pkt.Marshal()
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, client := range g.rooms[room] {
		if client.Account.ID == exceptAccountId {
			continue
		}
		client.push(data)
	}
}

func (g *Gateway) Broadcast(pkt proto.Packet) {
	data := pkt.Marshal()
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, client := range g.clients {
		client.push(data)
	}
}

// RoomAccounts lists the distinct accounts currently connected to a room.
func (g *Gateway) RoomAccounts(room string) []uint {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := lo.Map(lo.Values(g.rooms[room]), func(item *Client, index int) uint {
		return item.Account.ID
	})
	return lo.Uniq(ids)
}
