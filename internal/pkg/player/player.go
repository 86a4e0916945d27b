package player

import (
	"fmt"
	"sync"
	"time"
)

// SkipStep is a default jump for skip forward/back
const SkipStep = 10 * time.Second

// Sink renders audio from the position
type Sink interface {
	// Start starts playback. The returned channel is closed when the playback ends by itself or is stopped
	Start(from time.Duration, volume float64) (<-chan struct{}, error)
	Stop() error
}

// State is a snapshot of the transport
type State struct {
	Position time.Duration
	Duration time.Duration
	Playing  bool
	Volume   float64
	Muted    bool
}

// Player is the transport control over one audio source
type Player struct {
	sink     Sink
	duration time.Duration
	now      func() time.Time

	lock     sync.Mutex
	position time.Duration
	since    time.Time
	playing  bool
	volume   float64
	muted    bool
	gen      int
}

// New creates paused player at position 0 with full volume, duration 0 means unknown
func New(sink Sink, duration time.Duration) (*Player, error) {
	if sink == nil {
		return nil, fmt.Errorf("no sink")
	}
	if duration < 0 {
		duration = 0
	}
	return &Player{sink: sink, duration: duration, now: time.Now, volume: 1}, nil
}

// State returns current snapshot
func (p *Player) State() State {
	p.lock.Lock()
	defer p.lock.Unlock()
	return State{Position: p.pos(), Duration: p.duration, Playing: p.playing, Volume: p.volume, Muted: p.muted}
}

// Toggle switches play/pause
func (p *Player) Toggle() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.playing {
		return p.pause()
	}
	return p.play()
}

// Play starts playback, from the beginning if the end was reached
func (p *Player) Play() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.playing {
		return nil
	}
	return p.play()
}

// Pause stops playback keeping the position
func (p *Player) Pause() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.playing {
		return nil
	}
	return p.pause()
}

// Seek moves to the position clamped to [0, duration]
func (p *Player) Seek(to time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.seek(to)
}

// Skip moves position by delta
func (p *Player) Skip(delta time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.seek(p.pos() + delta)
}

// SetVolume sets volume clamped to [0, 1], 0 mutes the player
func (p *Player) SetVolume(v float64) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.volume = clampVolume(v)
	p.muted = p.volume == 0
	return p.restart()
}

// ToggleMute switches mute, unmuting a zero volume sets it to full
func (p *Player) ToggleMute() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.muted = !p.muted
	if !p.muted && p.volume == 0 {
		p.volume = 1
	}
	return p.restart()
}

// Close stops playback
func (p *Player) Close() error {
	return p.Pause()
}

func (p *Player) play() error {
	if p.duration > 0 && p.position >= p.duration {
		p.position = 0
	}
	p.gen++
	done, err := p.sink.Start(p.position, p.effectiveVolume())
	if err != nil {
		return fmt.Errorf("can't start playback: %w", err)
	}
	p.playing, p.since = true, p.now()
	go p.watch(done, p.gen)
	return nil
}

func (p *Player) pause() error {
	p.position = p.pos()
	p.playing = false
	p.gen++
	return p.sink.Stop()
}

func (p *Player) seek(to time.Duration) error {
	if to < 0 {
		to = 0
	}
	if p.duration > 0 && to > p.duration {
		to = p.duration
	}
	p.position, p.since = to, p.now()
	return p.restart()
}

func (p *Player) restart() error {
	if !p.playing {
		return nil
	}
	if err := p.pause(); err != nil {
		return err
	}
	return p.play()
}

// watch marks the end of playback when the sink finishes by itself
func (p *Player) watch(done <-chan struct{}, gen int) {
	if done == nil {
		return
	}
	<-done
	p.lock.Lock()
	defer p.lock.Unlock()
	if gen != p.gen || !p.playing {
		return
	}
	p.position = p.pos()
	if p.duration > 0 {
		p.position = p.duration
	}
	p.playing = false
}

func (p *Player) pos() time.Duration {
	res := p.position
	if p.playing {
		res += p.now().Sub(p.since)
	}
	if p.duration > 0 && res > p.duration {
		res = p.duration
	}
	return res
}

func (p *Player) effectiveVolume() float64 {
	if p.muted {
		return 0
	}
	return p.volume
}

func clampVolume(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
