//go:build unix

package netpoll

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sys/unix"
)

const readyMask = unix.POLLIN | unix.POLLHUP | unix.POLLERR | unix.POLLNVAL

// ReadyToRead returns the indexes of items that can be read without
// blocking, in the order they were given. Hang-ups and socket errors count as
// ready so the following read surfaces the failure. An item whose descriptor
// is no longer available is reported ready for the same reason.
//
// Items may be closed from other goroutines: every descriptor stays
// referenced until the poll returns, so a concurrent Close cannot hand its
// number to a new socket mid-poll.
func ReadyToRead(items []Pollable) ([]int, error) {
	if len(items) == 0 {
		return nil, nil
	}

	p := &pinnedPoll{
		items: items,
		fds:   make([]unix.PollFd, 0, len(items)),
		index: make([]int, 0, len(items)),
	}
	p.pin(0)
	if p.err != nil {
		return nil, p.err
	}

	ready := p.gone
	for j, pfd := range p.fds {
		if pfd.Revents&readyMask != 0 {
			ready = append(ready, p.index[j])
		}
	}
	slices.Sort(ready)
	return ready, nil
}

// pinnedPoll nests one RawConn.Control call per item and polls from the
// innermost callback, while all the descriptors are held.
type pinnedPoll struct {
	items []Pollable
	fds   []unix.PollFd
	index []int
	gone  []int
	err   error
}

func (p *pinnedPoll) pin(i int) {
	if i == len(p.items) {
		if len(p.fds) > 0 {
			p.err = pollNow(p.fds)
		}
		return
	}

	held := false
	if rc, err := p.items[i].SyscallConn(); err == nil {
		// Control only fails before calling us, when the socket is closed
		_ = rc.Control(func(fd uintptr) {
			held = true
			p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
			p.index = append(p.index, i)
			p.pin(i + 1)
		})
	}
	if !held {
		p.gone = append(p.gone, i)
		p.pin(i + 1)
	}
}

func pollNow(fds []unix.PollFd) error {
	for {
		_, err := unix.Poll(fds, 0)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EINTR) {
			return fmt.Errorf("netpoll: poll: %w", err)
		}
	}
}
