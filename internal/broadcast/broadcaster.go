package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/seibert-media/lower-thirds-tools/internal/adapter/metrics"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
	"github.com/seibert-media/lower-thirds-tools/internal/protocol"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
	commandBuffer  = 256
)

type session struct {
	id     string
	writer *clientWriter
	groups map[string]struct{}
}

// broadcasterCmd is the command interface for the Broadcaster actor.
type broadcasterCmd interface{ isBroadcasterCmd() }

type baseBroadcasterCmd struct{}

func (baseBroadcasterCmd) isBroadcasterCmd() {}

type registerCmd struct {
	baseBroadcasterCmd
	sessionID    string
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseBroadcasterCmd
	sessionID string
}

type joinCmd struct {
	baseBroadcasterCmd
	sessionID    string
	room         string
	errorChannel chan error
}

type leaveCmd struct {
	baseBroadcasterCmd
	sessionID    string
	room         string
	replyChannel chan bool
}

type sendCmd struct {
	baseBroadcasterCmd
	sessionID string
	data      []byte
}

type deliverCmd struct {
	baseBroadcasterCmd
	room string
	data []byte
}

type groupSizeCmd struct {
	baseBroadcasterCmd
	room         string
	replyChannel chan int
}

type sessionCountCmd struct {
	baseBroadcasterCmd
	replyChannel chan int
}

type stopCmd struct {
	baseBroadcasterCmd
}

// Broadcaster owns the connected sessions and the channel groups they joined.
// It also serves as the local Relay when no message queue is configured.
type Broadcaster struct {
	cmdCh       chan broadcasterCmd
	clock       clockwork.Clock
	sessions    map[string]*session
	groups      map[string]map[string]*session
	metrics     *metrics.WebSocketMetrics
	maxSessions int
	done        chan struct{}
	stopTimeout time.Duration
}

var (
	_ domain.Relay = (*Broadcaster)(nil)
	_ domain.Sink  = (*Broadcaster)(nil)
)

// NewBroadcaster creates and starts a broadcaster.
// maxSessions limits concurrent connections on this instance (0 means unlimited).
// wsMetrics may be nil.
func NewBroadcaster(clock clockwork.Clock, maxSessions int, wsMetrics *metrics.WebSocketMetrics) *Broadcaster {
	b := &Broadcaster{
		cmdCh:       make(chan broadcasterCmd, commandBuffer),
		clock:       clock,
		sessions:    make(map[string]*session),
		groups:      make(map[string]map[string]*session),
		metrics:     wsMetrics,
		maxSessions: maxSessions,
		done:        make(chan struct{}),
		stopTimeout: stopTimeout,
	}
	go b.run()
	return b
}

// Register adds a connection under sessionID and starts its writer.
func (b *Broadcaster) Register(sessionID string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	if !b.enqueue(registerCmd{sessionID: sessionID, connection: conn, errorChannel: errCh}) {
		return domain.ErrBroadcasterStopped
	}
	return awaitReply(b, errCh, "register")
}

// Unregister removes a session and drops all its group memberships.
func (b *Broadcaster) Unregister(sessionID string) {
	b.enqueue(unregisterCmd{sessionID: sessionID})
}

// Join adds the session to a channel group. Joining twice is a no-op.
func (b *Broadcaster) Join(sessionID, room string) error {
	errCh := make(chan error, 1)
	if !b.enqueue(joinCmd{sessionID: sessionID, room: room, errorChannel: errCh}) {
		return domain.ErrBroadcasterStopped
	}
	return awaitReply(b, errCh, "join")
}

// Leave removes the session from a channel group. It reports whether the session was a member.
func (b *Broadcaster) Leave(sessionID, room string) bool {
	replyCh := make(chan bool, 1)
	if !b.enqueue(leaveCmd{sessionID: sessionID, room: room, replyChannel: replyCh}) {
		return false
	}
	left, err := awaitValue(b, replyCh, "leave")
	return err == nil && left
}

// Send queues a frame for one session only.
func (b *Broadcaster) Send(sessionID string, frame protocol.Outbound) error {
	data, err := protocol.Encode(frame)
	if err != nil {
		return err
	}
	if !b.enqueue(sendCmd{sessionID: sessionID, data: data}) {
		return domain.ErrBroadcasterStopped
	}
	return nil
}

// Deliver fans a broadcast out to the local members of its room (every session if Room is empty).
func (b *Broadcaster) Deliver(msg domain.Broadcast) {
	data, err := protocol.Encode(protocol.RawEvent(msg.Event, msg.Data))
	if err != nil {
		slog.Error("Failed to encode broadcast", "event", msg.Event, "room", msg.Room, "error", err)
		return
	}
	b.enqueue(deliverCmd{room: msg.Room, data: data})
}

// Publish delivers locally. It makes the broadcaster a Relay for single-process deployments.
func (b *Broadcaster) Publish(_ context.Context, msg domain.Broadcast) error {
	b.Deliver(msg)
	return nil
}

// GroupSize returns the number of local sessions in a channel group, or -1 on timeout.
func (b *Broadcaster) GroupSize(room string) int {
	replyCh := make(chan int, 1)
	if !b.enqueue(groupSizeCmd{room: room, replyChannel: replyCh}) {
		return -1
	}
	n, err := awaitValue(b, replyCh, "group size")
	if err != nil {
		return -1
	}
	return n
}

// SessionCount returns the number of connected sessions, or -1 on timeout.
func (b *Broadcaster) SessionCount() int {
	replyCh := make(chan int, 1)
	if !b.enqueue(sessionCountCmd{replyChannel: replyCh}) {
		return -1
	}
	n, err := awaitValue(b, replyCh, "session count")
	if err != nil {
		return -1
	}
	return n
}

// Stop closes every connection with a close frame and waits for the actor to exit.
func (b *Broadcaster) Stop() {
	if !b.enqueue(stopCmd{}) {
		return
	}

	timeout := b.clock.NewTimer(b.stopTimeout)
	defer timeout.Stop()

	select {
	case <-b.done:
		slog.Info("Broadcaster stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Broadcaster stop timeout exceeded", "timeout", b.stopTimeout)
	}
}

// enqueue hands a command to the actor. It returns false once the actor has exited.
func (b *Broadcaster) enqueue(cmd broadcasterCmd) bool {
	select {
	case <-b.done:
		return false
	default:
	}

	select {
	case b.cmdCh <- cmd:
		return true
	case <-b.done:
		return false
	}
}

func awaitReply(b *Broadcaster, errCh chan error, op string) error {
	err, waitErr := awaitValue(b, errCh, op)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func awaitValue[T any](b *Broadcaster, replyCh chan T, op string) (T, error) {
	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case v := <-replyCh:
		return v, nil
	case <-b.done:
		var zero T
		return zero, domain.ErrBroadcasterStopped
	case <-timer.Chan():
		var zero T
		slog.Warn("Broadcaster command timed out", "command", op, "timeout", commandTimeout)
		return zero, fmt.Errorf("%s command timed out after %v", op, commandTimeout)
	}
}

func (b *Broadcaster) run() {
	defer close(b.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcaster panic recovered", "panic", r)
			b.closeAllClients("broadcaster panic")
		}
	}()

	for cmd := range b.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			b.handleRegister(c)
		case unregisterCmd:
			b.removeSession(c.sessionID)
		case joinCmd:
			b.handleJoin(c)
		case leaveCmd:
			c.replyChannel <- b.handleLeave(c.sessionID, c.room)
		case sendCmd:
			b.handleSend(c)
		case deliverCmd:
			b.handleDeliver(c)
		case groupSizeCmd:
			c.replyChannel <- len(b.groups[c.room])
		case sessionCountCmd:
			c.replyChannel <- len(b.sessions)
		case stopCmd:
			b.handleStop()
			return
		default:
			slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (b *Broadcaster) handleRegister(c registerCmd) {
	if _, exists := b.sessions[c.sessionID]; exists {
		_ = c.connection.Close()
		c.errorChannel <- fmt.Errorf("session %s already registered", c.sessionID)
		return
	}

	if b.maxSessions > 0 && len(b.sessions) >= b.maxSessions {
		slog.Warn("Rejecting client: max sessions reached", "session_id", c.sessionID, "max_sessions", b.maxSessions)
		_ = c.connection.Close()
		c.errorChannel <- fmt.Errorf("%w: limit %d reached", domain.ErrTooManySessions, b.maxSessions)
		return
	}

	b.sessions[c.sessionID] = &session{
		id:     c.sessionID,
		writer: newClientWriter(c.connection, b.clock),
		groups: make(map[string]struct{}),
	}
	if b.metrics != nil {
		b.metrics.ActiveConnections.Inc()
	}

	slog.Debug("Session registered", "session_id", c.sessionID, "total_sessions", len(b.sessions))
	c.errorChannel <- nil
}

func (b *Broadcaster) handleJoin(c joinCmd) {
	s, ok := b.sessions[c.sessionID]
	if !ok {
		c.errorChannel <- fmt.Errorf("%w: %s", domain.ErrSessionNotFound, c.sessionID)
		return
	}

	members, ok := b.groups[c.room]
	if !ok {
		members = make(map[string]*session)
		b.groups[c.room] = members
	}
	members[s.id] = s
	s.groups[c.room] = struct{}{}
	b.recordGroupSize(c.room)

	slog.Debug("Session joined group", "session_id", s.id, "channel", c.room, "members", len(members))
	c.errorChannel <- nil
}

func (b *Broadcaster) handleLeave(sessionID, room string) bool {
	s, ok := b.sessions[sessionID]
	if !ok {
		return false
	}
	if _, member := s.groups[room]; !member {
		return false
	}

	delete(s.groups, room)
	b.dropMember(room, sessionID)

	slog.Debug("Session left group", "session_id", sessionID, "channel", room)
	return true
}

func (b *Broadcaster) dropMember(room, sessionID string) {
	members := b.groups[room]
	delete(members, sessionID)
	if len(members) == 0 {
		delete(b.groups, room)
	}
	b.recordGroupSize(room)
}

func (b *Broadcaster) recordGroupSize(room string) {
	if b.metrics != nil {
		b.metrics.GroupMembers.WithLabelValues(room).Set(float64(len(b.groups[room])))
	}
}

func (b *Broadcaster) removeSession(sessionID string) {
	s, ok := b.sessions[sessionID]
	if !ok {
		return
	}

	s.writer.stop()
	for room := range s.groups {
		b.dropMember(room, sessionID)
	}
	delete(b.sessions, sessionID)

	if b.metrics != nil {
		b.metrics.ActiveConnections.Dec()
	}
	slog.Debug("Session unregistered", "session_id", sessionID, "remaining_sessions", len(b.sessions))
}

func (b *Broadcaster) handleSend(c sendCmd) {
	s, ok := b.sessions[c.sessionID]
	if !ok {
		return
	}
	b.queue(s, c.data)
}

func (b *Broadcaster) handleDeliver(c deliverCmd) {
	targets := b.sessions
	if c.room != "" {
		targets = b.groups[c.room]
	}

	var slow []*session
	for _, s := range targets {
		if !s.writer.offer(c.data) {
			slow = append(slow, s)
			continue
		}
		if b.metrics != nil {
			b.metrics.MessagesSent.Inc()
		}
	}

	for _, s := range slow {
		b.evict(s)
	}
}

func (b *Broadcaster) queue(s *session, data []byte) {
	if !s.writer.offer(data) {
		b.evict(s)
		return
	}
	if b.metrics != nil {
		b.metrics.MessagesSent.Inc()
	}
}

func (b *Broadcaster) evict(s *session) {
	slog.Warn("Disconnecting slow client", "session_id", s.id)
	if b.metrics != nil {
		b.metrics.SlowClientsEvicted.Inc()
	}
	b.removeSession(s.id)
}

func (b *Broadcaster) handleStop() {
	slog.Info("Broadcaster shutting down", "sessions", len(b.sessions), "groups", len(b.groups))
	b.closeAllClients("Server shutting down")
}

// closeAllClients closes all client connections with the given reason.
// Used during panic recovery and graceful shutdown.
func (b *Broadcaster) closeAllClients(reason string) {
	for id, s := range b.sessions {
		s.writer.stopGraceful(reason)
		delete(b.sessions, id)
	}
	for room := range b.groups {
		delete(b.groups, room)
		if b.metrics != nil {
			b.metrics.GroupMembers.DeleteLabelValues(room)
		}
	}
	if b.metrics != nil {
		b.metrics.ActiveConnections.Set(0)
	}
}
