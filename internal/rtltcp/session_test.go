package rtltcp

import (
	"log"
	"net"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewSessionClampsQueueLimit(t *testing.T) {
	var stop atomic.Bool
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := newSession(uuid.New(), nil, server, Config{QueueLimit: 0}, &stop, log.Default())
	assert.Equal(t, 1, cap(s.dataCh))
}

func TestNewSessionKeepsConfiguredQueueLimit(t *testing.T) {
	var stop atomic.Bool
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := newSession(uuid.New(), nil, server, Config{QueueLimit: 50}, &stop, log.Default())
	assert.Equal(t, 50, cap(s.dataCh))
	assert.Equal(t, 16, cap(s.cmdCh))
}
