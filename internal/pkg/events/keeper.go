package events

import (
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
)

// WsConn is interface for websocket handling
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

type conn struct {
	ws        WsConn
	writeLock sync.Mutex
}

func (c *conn) write(v interface{}) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.ws.WriteJSON(v)
}

// Keeper keeps owner's websocket connections and pushes submission events to them
type Keeper struct {
	ownerConns map[string]map[*conn]struct{}
	lock       sync.Mutex
	timeOut    time.Duration
}

// NewKeeper creates connection keeper
func NewKeeper() *Keeper {
	return &Keeper{ownerConns: map[string]map[*conn]struct{}{}, timeOut: time.Hour}
}

// HandleConnection registers the connection for the owner and blocks until it is closed or timeouted
func (kp *Keeper) HandleConnection(ws WsConn, owner string) error {
	c := &conn{ws: ws}
	kp.save(c, owner)
	defer kp.delete(c, owner)
	defer ws.Close()

	readCh := make(chan struct{}, 1)
	go func() {
		defer close(readCh)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				goapp.Log.Debug().Err(err).Str("owner", owner).Msg("ws read end")
				return
			}
			select {
			case readCh <- struct{}{}:
			default:
			}
		}
	}()

	ta := time.After(kp.timeOut)
	for {
		select {
		case <-ta:
			goapp.Log.Debug().Str("owner", owner).Msg("conn timeouted")
			return nil
		case _, ok := <-readCh:
			if !ok {
				return nil
			}
			ta = time.After(kp.timeOut)
		}
	}
}

// Publish sends event to all owner's connections
func (kp *Keeper) Publish(owner string, ev *api.Event) {
	conns := kp.connections(owner)
	if len(conns) == 0 {
		goapp.Log.Debug().Str("owner", owner).Msg("no ws connections")
		return
	}
	for _, c := range conns {
		if err := c.write(ev); err != nil {
			goapp.Log.Warn().Err(err).Str("owner", owner).Msg("can't send event")
		}
	}
}

// Count returns number of owner's connections
func (kp *Keeper) Count(owner string) int {
	return len(kp.connections(owner))
}

func (kp *Keeper) connections(owner string) []*conn {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	res := make([]*conn, 0, len(kp.ownerConns[owner]))
	for c := range kp.ownerConns[owner] {
		res = append(res, c)
	}
	return res
}

func (kp *Keeper) save(c *conn, owner string) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	conns, found := kp.ownerConns[owner]
	if !found {
		conns = map[*conn]struct{}{}
		kp.ownerConns[owner] = conns
	}
	conns[c] = struct{}{}
	goapp.Log.Info().Str("owner", owner).Int("owners", len(kp.ownerConns)).Msg("ws connected")
}

func (kp *Keeper) delete(c *conn, owner string) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	if conns, found := kp.ownerConns[owner]; found {
		delete(conns, c)
		if len(conns) == 0 {
			delete(kp.ownerConns, owner)
		}
	}
	goapp.Log.Info().Str("owner", owner).Int("owners", len(kp.ownerConns)).Msg("ws disconnected")
}
