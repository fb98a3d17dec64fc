// Copyright (C) 2025  wavekit
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package waverelay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFailureThreshold is the number of consecutive connection failures
// after which the poller recreates the session.
const DefaultFailureThreshold = 3

// OnStatusFunc receives a snapshot of all channel states after each poll.
type OnStatusFunc func(states []bool)

// OnErrorFunc receives poll errors.
type OnErrorFunc func(err error)

// StatusPoller periodically reads the relay status of one device and pushes
// snapshots to a callback. It owns the Client exclusively while running: the
// client itself does not retry, so reconnect policy lives here. Repeated
// connection failures close and recreate the session, since a Modbus TCP
// stream can be desynchronized beyond recovery.
type StatusPoller struct {
	client    *Client
	interval  time.Duration
	threshold int

	onStatus atomic.Value // OnStatusFunc
	onError  atomic.Value // OnErrorFunc

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup

	failures int
}

// NewStatusPoller creates a poller reading the device every interval.
func NewStatusPoller(client *Client, interval time.Duration) *StatusPoller {
	return &StatusPoller{
		client:    client,
		interval:  interval,
		threshold: DefaultFailureThreshold,
		stopCh:    make(chan struct{}),
	}
}

// SetFailureThreshold overrides the consecutive-failure count that triggers
// a reconnect. Values below 1 are ignored.
func (p *StatusPoller) SetFailureThreshold(n int) {
	if n >= 1 {
		p.threshold = n
	}
}

// SetOnStatus sets the snapshot callback.
func (p *StatusPoller) SetOnStatus(fn OnStatusFunc) {
	p.onStatus.Store(fn)
}

// SetOnError sets the error callback.
func (p *StatusPoller) SetOnError(fn OnErrorFunc) {
	p.onError.Store(fn)
}

// Start launches the polling loop. Subsequent calls are no-ops.
func (p *StatusPoller) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.poll()
	})
}

// Stop terminates the polling loop and waits for it to exit. It does not
// close the Client; the owner decides its lifetime.
func (p *StatusPoller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
}

func (p *StatusPoller) poll() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *StatusPoller) pollOnce() {
	states, err := p.client.ReadCoils()
	if err != nil {
		p.reportError(err)
		if errors.Is(err, ErrConnection) {
			p.failures++
			if p.failures >= p.threshold {
				p.failures = 0
				if rerr := p.client.Reconnect(); rerr != nil {
					p.reportError(rerr)
				}
			}
		}
		return
	}
	p.failures = 0
	if cb := p.onStatus.Load(); cb != nil {
		cb.(OnStatusFunc)(states)
	}
}

func (p *StatusPoller) reportError(err error) {
	if cb := p.onError.Load(); cb != nil {
		cb.(OnErrorFunc)(err)
	}
}
