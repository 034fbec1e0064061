package channel

import (
	"sync"

	"github.com/seibert-media/lower-thirds-tools/internal/domain"
)

// State is the overlay state of a channel.
type State int

const (
	Idle State = iota
	Showing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Showing:
		return "showing"
	default:
		return "unknown"
	}
}

// Transition is the outcome of a successful mutation: the event to announce,
// the status right after the mutation and the channel's publication ticket.
// Every Transition must be passed to Emit exactly once.
type Transition struct {
	Event   string
	Payload any
	Status  domain.ChannelStatus

	ticket uint64
}

// Channel is one isolated overlay context.
type Channel struct {
	name string
	slug string

	mu         sync.Mutex
	visible    bool
	current    *domain.LowerThird
	nextTicket uint64

	emitMu  sync.Mutex
	emitted *sync.Cond
	serving uint64
}

func newChannel(name, slug string) *Channel {
	c := &Channel{name: name, slug: slug}
	c.emitted = sync.NewCond(&c.emitMu)
	return c
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Slug() string { return c.slug }

func (c *Channel) Info() domain.ChannelInfo {
	return domain.ChannelInfo{Name: c.name, Slug: c.slug}
}

// StateOf returns the machine state a status snapshot describes.
func StateOf(status domain.ChannelStatus) State {
	if status.LowerThirdVisible {
		return Showing
	}
	return Idle
}

// Show makes lt the current lower third. It fails with domain.ErrAlreadyShowing
// while another one is displayed; the channel is left untouched in that case.
func (c *Channel) Show(lt domain.LowerThird) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.visible {
		return Transition{}, domain.ErrAlreadyShowing
	}

	c.current = &lt
	c.visible = true
	return c.transitionLocked(domain.EventShowLowerThird, domain.ShowEvent{Channel: c.slug, LowerThird: lt}), nil
}

// Hide clears the current lower third. Valid from any state.
func (c *Channel) Hide() Transition {
	return c.clear(domain.EventHideLowerThird)
}

// Kill has the same state effect as Hide but is announced as kill_lower_third.
func (c *Channel) Kill() Transition {
	return c.clear(domain.EventKillLowerThird)
}

func (c *Channel) clear(event string) Transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
	c.visible = false
	return c.transitionLocked(event, domain.ChannelEvent{Channel: c.slug})
}

func (c *Channel) transitionLocked(event string, payload any) Transition {
	t := Transition{
		Event:   event,
		Payload: payload,
		Status:  c.statusLocked(),
		ticket:  c.nextTicket,
	}
	c.nextTicket++
	return t
}

// Snapshot runs deliver with the current status in the channel's publication
// order: every transition committed before it has been published when deliver
// runs, and none committed after it has.
func (c *Channel) Snapshot(deliver func(domain.ChannelStatus)) {
	c.mu.Lock()
	t := c.transitionLocked(domain.EventChannelStatus, nil)
	c.mu.Unlock()

	c.Emit(t, func(t Transition) { deliver(t.Status) })
}

// Status returns a consistent snapshot of the channel.
func (c *Channel) Status() domain.ChannelStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Channel) statusLocked() domain.ChannelStatus {
	status := domain.ChannelStatus{
		Channel:           c.slug,
		LowerThirdVisible: c.visible,
	}
	if c.current != nil {
		lt := *c.current
		status.CurrentLowerThird = &lt
	}
	return status
}

// Emit runs publish for t once every earlier transition of this channel has
// been published, so announcements leave in mutation order. The state lock is
// not held while publish runs.
func (c *Channel) Emit(t Transition, publish func(Transition)) {
	c.emitMu.Lock()
	for c.serving != t.ticket {
		c.emitted.Wait()
	}
	c.emitMu.Unlock()

	defer func() {
		c.emitMu.Lock()
		c.serving++
		c.emitted.Broadcast()
		c.emitMu.Unlock()
	}()

	publish(t)
}
