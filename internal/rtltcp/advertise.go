package rtltcp

import (
	"context"
	"log"
	"strconv"

	"github.com/grandcat/zeroconf"
)

// Advertise registers an mDNS service record ("_rtltcp._tcp") so LAN
// clients can discover this server without a hardcoded address.
// Advertisement is best-effort: a failure here only logs a warning, it
// never fails server startup.
func Advertise(ctx context.Context, instance string, port int, tunerName string, sampleRateHz uint32, logger *log.Logger) {
	server, err := zeroconf.Register(
		instance,
		"_rtltcp._tcp",
		"local.",
		port,
		[]string{
			"tuner=" + tunerName,
			"sample_rate=" + strconv.FormatUint(uint64(sampleRateHz), 10),
		},
		nil,
	)
	if err != nil {
		logger.Printf("mdns: advertisement failed to start: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()
}
