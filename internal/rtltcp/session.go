package rtltcp

import (
	"context"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"rtlsdr/internal/rtl"
)

// Config tunes the server-wide, per-session behavior.
type Config struct {
	// QueueLimit bounds the number of in-flight sample buffers per
	// session; the producer blocks once it is full, which is the
	// backpressure signal to a slow client.
	QueueLimit int
	// BufLength is the size of each bulk read, in bytes.
	BufLength int
}

// DefaultConfig mirrors the reference server's defaults.
func DefaultConfig() Config {
	return Config{QueueLimit: 500, BufLength: rtl.DefaultBufLength}
}

// session runs the three-role concurrency pattern for a single connected
// client: this goroutine is the data producer and the only one that ever
// touches sdr; sender and command run as separate goroutines coordinated
// through channels and atomic stop flags.
type session struct {
	id         uuid.UUID
	sdr        *rtl.SDR
	conn       net.Conn
	cfg        Config
	log        *log.Logger
	globalStop *atomic.Bool

	stop    atomic.Bool
	dataCh  chan []byte
	cmdCh   chan command
	doneCh  chan struct{}

	gainMode rtl.GainMode
	lastGain int
}

func newSession(id uuid.UUID, sdr *rtl.SDR, conn net.Conn, cfg Config, globalStop *atomic.Bool, logger *log.Logger) *session {
	if cfg.QueueLimit < 1 {
		cfg.QueueLimit = 1
	}
	return &session{
		id:         id,
		sdr:        sdr,
		conn:       conn,
		cfg:        cfg,
		log:        logger,
		globalStop: globalStop,
		dataCh:     make(chan []byte, cfg.QueueLimit),
		cmdCh:      make(chan command, 16),
		doneCh:     make(chan struct{}),
	}
}

// run sends the handshake, starts the sender and command goroutines, and
// then becomes the data producer until the session or server stops.
func (s *session) run() {
	gains := s.sdr.TunerGains()
	hs := handshake(len(gains))
	if _, err := s.conn.Write(hs[:]); err != nil {
		s.log.Printf("session %s: handshake write failed: %v", s.id, err)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.senderLoop()
	}()
	go func() {
		defer wg.Done()
		s.commandLoop()
	}()

	s.producerLoop()

	s.stop.Store(true)
	s.conn.Close()
	wg.Wait()
}

func (s *session) producerLoop() {
	ctx := context.Background()
	for !s.stop.Load() && !s.globalStop.Load() {
		s.drainCommands()

		buf, err := s.sdr.ReadSync(ctx, s.cfg.BufLength)
		if err != nil || len(buf) == 0 {
			if err != nil {
				s.log.Printf("session %s: bulk read failed: %v", s.id, err)
			}
			return
		}

		select {
		case s.dataCh <- buf:
		case <-s.doneCh:
			return
		}
	}
}

func (s *session) drainCommands() {
	for {
		select {
		case cmd := <-s.cmdCh:
			if cmd.kind == cmdShutdown {
				s.stop.Store(true)
				return
			}
			if err := s.apply(cmd); err != nil {
				s.log.Printf("session %s: command %s failed: %v", s.id, cmd.kind, err)
			}
		default:
			return
		}
	}
}

// apply maps one wire command onto the SDR's public operations. The five
// accepted-but-unwired commands only log that they were received,
// preserving wire compatibility with clients that send them
// unconditionally.
func (s *session) apply(cmd command) error {
	switch cmd.kind {
	case CmdSetFrequency:
		return s.sdr.SetCenterFreq(cmd.payload)
	case CmdSetSampleRate:
		if err := s.sdr.SetSampleRate(cmd.payload); err != nil {
			return err
		}
		return s.sdr.ResetBuffer()
	case CmdSetGainMode:
		if cmd.payload == 0 {
			s.gainMode = rtl.GainAuto
		} else {
			s.gainMode = rtl.GainManual
		}
		return s.sdr.SetTunerGain(s.gainMode, s.lastGain)
	case CmdSetGain:
		s.lastGain = int(int32(cmd.payload))
		return s.sdr.SetTunerGain(s.gainMode, s.lastGain)
	case CmdSetFreqCorrection:
		return s.sdr.SetFreqCorrection(int(int32(cmd.payload)))
	case CmdSetIfGain:
		s.log.Printf("session %s: SetIfGain accepted, not applied", s.id)
		return nil
	case CmdSetTestMode:
		return s.sdr.SetTestMode(cmd.payload != 0)
	case CmdSetAgcMode:
		s.log.Printf("session %s: SetAgcMode accepted, not applied", s.id)
		return nil
	case CmdSetDirectSampling:
		mode := rtl.DirectSamplingOff
		switch cmd.payload {
		case 1:
			mode = rtl.DirectSamplingOn
		case 2:
			mode = rtl.DirectSamplingOnSwap
		}
		return s.sdr.SetDirectSampling(mode)
	case CmdSetOffsetTuning:
		s.log.Printf("session %s: SetOffsetTuning accepted, not applied", s.id)
		return nil
	case CmdSetRtlXtal:
		s.log.Printf("session %s: SetRtlXtal accepted, not applied", s.id)
		return nil
	case CmdSetTunerXtal:
		s.log.Printf("session %s: SetTunerXtal accepted, not applied", s.id)
		return nil
	case CmdSetGainByIndex:
		gains := s.sdr.TunerGains()
		if int(cmd.payload) >= len(gains) {
			return nil
		}
		s.lastGain = gains[cmd.payload]
		s.gainMode = rtl.GainManual
		return s.sdr.SetTunerGain(s.gainMode, s.lastGain)
	case CmdSetBiasTee:
		return s.sdr.SetBiasTee(cmd.payload != 0)
	default:
		return nil
	}
}

// senderLoop writes queued sample buffers to the client with a 200ms
// timed receive so it notices shutdown without an extra signal channel.
func (s *session) senderLoop() {
	defer close(s.doneCh)
	for {
		select {
		case buf := <-s.dataCh:
			if _, err := s.conn.Write(buf); err != nil {
				s.stop.Store(true)
				return
			}
		case <-time.After(200 * time.Millisecond):
			if s.stop.Load() || s.globalStop.Load() {
				return
			}
		}
	}
}

// commandLoop reads fixed 5-byte frames from the client and forwards them
// to the producer. EOF is a normal session close.
func (s *session) commandLoop() {
	for {
		cmd, err := readCommand(s.conn)
		if err != nil {
			s.stop.Store(true)
			return
		}
		select {
		case s.cmdCh <- cmd:
		case <-s.doneCh:
			return
		}
	}
}
