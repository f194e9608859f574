// Command rtl_tcp serves RTL-SDR I/Q samples over the rtl_tcp wire
// protocol to one client at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"rtlsdr/internal/rtl"
	"rtlsdr/internal/rtlhttp"
	"rtlsdr/internal/rtltcp"
)

func main() {
	if err := run(); err != nil {
		log.Printf("rtl_tcp: %v", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr        = flag.String("a", "0.0.0.0", "listen address")
		port        = flag.Int("p", 1234, "listen port")
		freqStr     = flag.String("f", "100000000", "center frequency, accepts k/M/G suffix")
		gainDb      = flag.Float64("g", -1, "tuner gain in dB (negative selects auto gain)")
		rate        = flag.Uint("s", 2_048_000, "sample rate in Hz")
		_           = flag.Int("b", 0, "number of buffers (accepted, unused)")
		queueLimit  = flag.Int("n", 500, "max number of queued sample buffers")
		deviceIndex = flag.Int("d", 0, "device index")
		ppm         = flag.Int("P", 0, "frequency correction in PPM")
		biasTee     = flag.Bool("T", false, "enable bias-tee")
		direct      = flag.Bool("D", false, "enable direct sampling")
		httpAddr    = flag.String("http-addr", "", "address for the read-only HTTP status surface, empty disables it")
		mdns        = flag.Bool("mdns", false, "advertise this server via mDNS as _rtltcp._tcp")
	)
	flag.Parse()

	freq, err := parseScaled(*freqStr)
	if err != nil {
		return fmt.Errorf("parsing -f: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sdr, err := rtl.Open(rtl.ByIndex(*deviceIndex))
	if err != nil {
		return fmt.Errorf("opening device: %w", err)
	}
	defer sdr.Close()

	if err := sdr.Init(); err != nil {
		return fmt.Errorf("initializing device: %w", err)
	}
	defer sdr.DeinitBaseband()

	if err := sdr.SetSampleRate(uint32(*rate)); err != nil {
		return fmt.Errorf("setting sample rate: %w", err)
	}
	if err := sdr.SetCenterFreq(uint32(freq)); err != nil {
		return fmt.Errorf("setting frequency: %w", err)
	}
	if err := sdr.SetFreqCorrection(*ppm); err != nil {
		return fmt.Errorf("setting frequency correction: %w", err)
	}
	if *gainDb < 0 {
		if err := sdr.SetTunerGain(rtl.GainAuto, 0); err != nil {
			return fmt.Errorf("setting auto gain: %w", err)
		}
	} else {
		if err := sdr.SetTunerGain(rtl.GainManual, int(*gainDb*10)); err != nil {
			return fmt.Errorf("setting manual gain: %w", err)
		}
	}
	if err := sdr.SetBiasTee(*biasTee); err != nil {
		return fmt.Errorf("setting bias-tee: %w", err)
	}
	if *direct {
		if err := sdr.SetDirectSampling(rtl.DirectSamplingOn); err != nil {
			return fmt.Errorf("enabling direct sampling: %w", err)
		}
	}

	cfg := rtltcp.DefaultConfig()
	cfg.QueueLimit = *queueLimit

	listenAddr := net.JoinHostPort(*addr, strconv.Itoa(*port))
	srv := rtltcp.NewServer(listenAddr, sdr, cfg, log.Default())

	if *mdns {
		rtltcp.Advertise(ctx, "rtl_tcp", *port, "R820T", sdr.SampleRate(), log.Default())
	}

	if *httpAddr != "" {
		httpSrv := rtlhttp.NewServer(sdr, srv)
		hs := &http.Server{Addr: *httpAddr, Handler: httpSrv.Handler()}
		go func() {
			if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("rtl_tcp: http surface stopped: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			hs.Close()
		}()
	}

	log.Printf("rtl_tcp: listening on %s", listenAddr)
	return srv.Serve(ctx)
}

// parseScaled parses an integer frequency with an optional k/M/G SI
// suffix, e.g. "100M" -> 100_000_000.
func parseScaled(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	mul := int64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'k', 'K':
		mul = 1_000
		s = s[:len(s)-1]
	case 'm', 'M':
		mul = 1_000_000
		s = s[:len(s)-1]
	case 'g', 'G':
		mul = 1_000_000_000
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(v * float64(mul)), nil
}
