package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/liveshare/internal/domain"
	"go.uber.org/zap"
)

// Actor owns the authoritative state of one room. Every mutation runs under
// its lock, so transitions are atomic with respect to observers and viewers
// see host updates in version order. Socket I/O happens on per-connection
// goroutines fed through buffered channels; the actor itself never blocks on
// the network.
type Actor struct {
	key        string
	store      domain.RoomStore
	logger     *zap.SugaredLogger
	ttl        time.Duration
	maxViewers int

	mu      sync.Mutex
	room    domain.Room
	host    *hostConn
	viewers map[*viewer]bool
	timer   *time.Timer
}

// newActor builds the actor for key and loads any persisted state before the
// actor becomes observable. Callers (the registry, under its own lock) must
// not hand out the actor until this returns.
func newActor(ctx context.Context, key string, store domain.RoomStore, logger *zap.SugaredLogger, ttl time.Duration, maxViewers int) (*Actor, error) {
	a := &Actor{
		key:        key,
		store:      store,
		logger:     logger,
		ttl:        ttl,
		maxViewers: maxViewers,
		room:       domain.Room{Key: key},
		viewers:    make(map[*viewer]bool),
	}

	stored, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		a.room = *stored
	}

	if a.room.Active {
		// Restart recovery: the timer is re-derived from the persisted
		// expiry, never from an in-memory countdown.
		metricRoomsActive.Inc()
		a.mu.Lock()
		a.armTimerLocked()
		a.mu.Unlock()
	}

	return a, nil
}

// Init activates the room. Valid only when the key is not already backing an
// active room; a collision surfaces as ErrAlreadyActive so the registry can
// regenerate the key.
func (a *Actor) Init(ctx context.Context, hostToken, ip string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.room.Active {
		return domain.ErrAlreadyActive
	}

	room := domain.Room{
		Key:         a.key,
		Selection:   domain.Selection{},
		HostToken:   hostToken,
		Active:      true,
		CreatedByIP: ip,
		ExpiresAt:   time.Now().Add(a.ttl),
	}
	if err := a.store.Save(ctx, &room); err != nil {
		return err
	}

	a.room = room
	a.armTimerLocked()

	metricRoomsStarted.Inc()
	metricRoomsActive.Inc()
	return nil
}

// Snapshot returns a copy of the current room state. Safe against inactive
// and never-initialized rooms.
func (a *Actor) Snapshot() domain.Room {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.room
}

// Stop deactivates the room after authenticating the host token. Stopping an
// already-inactive room with the token it ended with is an idempotent no-op.
func (a *Actor) Stop(ctx context.Context, hostToken string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hostToken == "" || hostToken != a.room.HostToken {
		return domain.ErrUnauthorized
	}
	if !a.room.Active {
		return nil
	}

	return a.deactivateLocked(ctx, closeReasonEnded)
}

// AcceptHost admits a host socket. The upgrade has already completed, so
// rejects are explained with an error frame before the socket closes. A
// prior host socket is closed with a "replaced" reason before the new one
// takes over.
func (a *Actor) AcceptHost(ctx context.Context, ws *websocket.Conn, token string) {
	a.mu.Lock()

	if token == "" || token != a.room.HostToken {
		a.mu.Unlock()
		rejectSocket(ws, NewErrorFrame(ReasonUnauthorized), websocket.ClosePolicyViolation, ReasonUnauthorized)
		return
	}
	if !a.room.Active {
		a.mu.Unlock()
		rejectSocket(ws, NewErrorFrame(ReasonInactive), websocket.ClosePolicyViolation, ReasonInactive)
		return
	}

	if prior := a.host; prior != nil {
		_ = prior.conn.CloseWith(websocket.CloseNormalClosure, closeReasonReplaced)
		a.host = nil
	}

	h := &hostConn{id: uuid.NewString(), conn: newConnWrapper(ws)}
	a.host = h

	room := a.room
	room.HostConnected = true
	if err := a.store.Save(ctx, &room); err != nil {
		// The connect transition did not commit; drop the socket so the
		// client retries against consistent state.
		a.host = nil
		a.mu.Unlock()
		a.logger.Errorw("persist host connect failed", "key", a.key, "error", err)
		_ = ws.Close()
		return
	}
	a.room = room
	a.mu.Unlock()

	a.logger.Infow("host connected", "key", a.key, "conn", h.id)
	go h.readPump(a)
}

// hostClosed records that the current host socket went away. The room stays
// active; viewers keep the last broadcast state.
func (a *Actor) hostClosed(h *hostConn) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.host != h {
		return
	}
	a.host = nil

	if !a.room.Active {
		return
	}
	room := a.room
	room.HostConnected = false
	if err := a.store.Save(context.Background(), &room); err != nil {
		a.logger.Errorw("persist host disconnect failed", "key", a.key, "error", err)
		return
	}
	a.room = room
}

// AcceptViewer admits a read-only socket. The viewer synchronously receives
// one snapshot frame, then joins the broadcast set.
func (a *Actor) AcceptViewer(ws *websocket.Conn) {
	a.mu.Lock()

	if !a.room.Active {
		a.mu.Unlock()
		rejectSocket(ws, NewEndedFrame(), websocket.CloseNormalClosure, closeReasonInactive)
		return
	}
	if len(a.viewers) >= a.maxViewers {
		a.mu.Unlock()
		metricViewerRejects.WithLabelValues(ReasonRoomFull).Inc()
		rejectSocket(ws, NewErrorFrame(ReasonRoomFull), websocket.ClosePolicyViolation, closeReasonRoomFull)
		return
	}

	v := &viewer{
		id:   uuid.NewString(),
		conn: newConnWrapper(ws),
		send: make(chan any, viewerSendBuf),
	}
	// Initial snapshot goes into the channel before the viewer joins the
	// broadcast set, so it always precedes relayed updates.
	v.send <- NewStateFrame(&a.room)
	a.viewers[v] = true
	count := len(a.viewers)
	a.mu.Unlock()

	metricViewersConnected.Inc()
	a.logger.Infow("viewer connected", "key", a.key, "conn", v.id, "viewers", count)

	go v.writePump()
	go v.readPump(a.viewerClosed)
}

func (a *Actor) viewerClosed(v *viewer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dropViewerLocked(v)
}

func (a *Actor) dropViewerLocked(v *viewer) {
	if _, ok := a.viewers[v]; !ok {
		return
	}
	delete(a.viewers, v)
	close(v.send)
	metricViewersConnected.Dec()
}

// ApplyHostUpdate applies one host state message: persist first, then fan
// the committed snapshot out to every viewer. The version is strictly
// monotonic server-side; a client-supplied version is adopted only when it
// is ahead of the current one.
func (a *Actor) ApplyHostUpdate(h *hostConn, msg *hostMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.room.Active {
		return domain.ErrInactive
	}
	if a.host != h {
		return domain.ErrUnauthorized
	}

	room := a.room
	room.Content = msg.Content
	if msg.Selection != nil {
		room.Selection = *msg.Selection
	} else {
		room.Selection = domain.Selection{}
	}
	room.Language = msg.Language
	if msg.Version > a.room.Version {
		room.Version = msg.Version
	} else {
		room.Version = a.room.Version + 1
	}

	if err := a.store.Save(context.Background(), &room); err != nil {
		// Abort the transition: nothing is applied, nothing broadcast.
		a.logger.Errorw("persist update failed", "key", a.key, "error", err)
		return nil
	}
	a.room = room
	metricHostUpdates.Inc()

	frame := NewStateFrame(&a.room)
	var stalled []*viewer
	for v := range a.viewers {
		select {
		case v.send <- frame:
			metricBroadcastFrames.Inc()
		default:
			// A viewer this far behind would otherwise observe a gap;
			// disconnect it instead of skipping frames.
			stalled = append(stalled, v)
		}
	}
	for _, v := range stalled {
		a.logger.Warnw("viewer too slow, dropping", "key", a.key, "conn", v.id)
		a.dropViewerLocked(v)
	}

	return nil
}

// onTimerFire handles TTL expiry. An early fire (rescheduled instance, clock
// skew) re-arms for the exact persisted expiry without side effects.
func (a *Actor) onTimerFire() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.room.Active {
		return
	}
	if time.Now().Before(a.room.ExpiresAt) {
		a.armTimerLocked()
		return
	}

	if err := a.deactivateLocked(context.Background(), closeReasonExpired); err != nil {
		a.logger.Errorw("expire failed", "key", a.key, "error", err)
	}
}

// deactivateLocked is the single termination path for stop and expiry.
// Termination is terminal: the room never reactivates under this key
// instance until a fresh Init wins the key again.
func (a *Actor) deactivateLocked(ctx context.Context, reason string) error {
	room := a.room
	room.Active = false
	room.HostConnected = false
	room.ExpiresAt = time.Now()
	if err := a.store.Save(ctx, &room); err != nil {
		return err
	}
	a.room = room

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	for v := range a.viewers {
		select {
		case v.send <- NewEndedFrame():
		default:
		}
		v.closeReason = reason
		close(v.send)
		metricViewersConnected.Dec()
	}
	a.viewers = make(map[*viewer]bool)

	if a.host != nil {
		_ = a.host.conn.CloseWith(websocket.CloseNormalClosure, reason)
		a.host = nil
	}

	metricRoomsActive.Dec()
	metricRoomsEnded.WithLabelValues(reason).Inc()
	a.logger.Infow("room ended", "key", a.key, "reason", reason)
	return nil
}

func (a *Actor) armTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(time.Until(a.room.ExpiresAt), a.onTimerFire)
}

// rejectSocket completes the contract for refused connections: the upgrade
// has succeeded, so the client gets an explanatory frame and a clean close
// rather than an abrupt disconnect.
func rejectSocket(ws *websocket.Conn, frame any, code int, reason string) {
	w := newConnWrapper(ws)
	_ = w.WriteJSON(frame)
	_ = w.CloseWith(code, reason)
}
