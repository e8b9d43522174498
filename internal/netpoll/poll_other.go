//go:build !unix

package netpoll

// ReadyToRead is unavailable without poll(2).
func ReadyToRead(items []Pollable) ([]int, error) {
	return nil, ErrUnsupported
}
