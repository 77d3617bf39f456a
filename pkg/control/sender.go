// ABOUTME: UDP sender for control messages
// ABOUTME: One message per datagram, fire and forget
package control

import (
	"fmt"
	"log"
	"net"
	"sync"
)

// DefaultAddress is where the radio pipeline listens for control messages
const DefaultAddress = "127.0.0.1:1235"

// Sender writes control messages to a fixed UDP destination
type Sender struct {
	mu   sync.Mutex
	conn *net.UDPConn
	addr *net.UDPAddr
	sent uint64
}

// NewSender opens a UDP socket aimed at address
func NewSender(address string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve control address %s: %w", address, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open control socket: %w", err)
	}

	return &Sender{conn: conn, addr: addr}, nil
}

// Send encodes key/value and writes it as a single datagram.
// Encoding errors are returned; nothing is sent in that case.
func (s *Sender) Send(key, value string) error {
	return s.SendMessage(Parse(key, value))
}

// SendMessage writes an already parsed message
func (s *Sender) SendMessage(msg Message) error {
	data, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode control message %q: %w", msg.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("control sender closed")
	}

	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send control message: %w", err)
	}
	s.sent++

	log.Printf("Control message sent to %s: %s", s.addr, msg)
	return nil
}

// Sent returns the number of datagrams written
func (s *Sender) Sent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Addr returns the destination address
func (s *Sender) Addr() string {
	return s.addr.String()
}

// Close releases the socket
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
