package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	defaultDialTimeout = 3 * time.Second
	defaultRWTimeout   = 15 * time.Second
)

// SendCommand dials addr (empty selects the per-platform default), sends
// req, and waits for the matching response. One command per connection.
func SendCommand(addr string, req ControlRequest) (ControlResponse, error) {
	if addr == "" {
		addr = defaultAddr()
	}
	conn, err := dial(addr, defaultDialTimeout)
	if err != nil {
		return ControlResponse{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(defaultRWTimeout)); err != nil {
		return ControlResponse{}, fmt.Errorf("ipc: set deadline: %w", err)
	}
	raw, err := encodeRequest(req)
	if err != nil {
		return ControlResponse{}, err
	}
	if _, err := conn.Write(raw); err != nil {
		return ControlResponse{}, err
	}
	if _, err := conn.Write([]byte{'\n'}); err != nil {
		return ControlResponse{}, err
	}

	respRaw, err := readFrame(bufio.NewReaderSize(conn, maxResponseBytes+1), maxResponseBytes)
	if err != nil {
		return ControlResponse{}, err
	}
	resp, err := decodeResponse(respRaw)
	if err != nil {
		return ControlResponse{}, fmt.Errorf("ipc: invalid response: %w", err)
	}
	return resp, nil
}

// IsConnectionError reports whether err indicates no server is listening at
// addr (as opposed to a protocol-level failure once connected).
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return errors.Is(err, io.EOF)
}
