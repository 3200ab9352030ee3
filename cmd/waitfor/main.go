package main

import (
	"context"
	"flag"
	"net"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	addrs    = flag.String("addr", "localhost:5432", "comma-separated host:port list to wait for")
	attempts = flag.Int("attempts", 20, "max connection attempts per address")
	interval = flag.Duration("interval", time.Second, "delay between attempts")
	timeout  = flag.Duration("timeout", 10*time.Second, "dial timeout of one attempt")
)

// waitFor dials addr until it accepts a TCP connection or attempts run out.
func waitFor(ctx context.Context, addr string, attempts int, interval, timeout time.Duration) bool {
	dialer := net.Dialer{Timeout: timeout}
	for i := 1; i <= attempts; i++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			log.WithField("addr", addr).Info("TCP connection available")
			return true
		}
		log.WithField("addr", addr).WithField("attempt", i).WithError(err).Info("connection not yet available")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return false
}

func main() {
	flag.Parse()

	ctx := context.Background()
	for _, addr := range strings.Split(*addrs, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if !waitFor(ctx, addr, *attempts, *interval, *timeout) {
			log.WithField("addr", addr).Error("could not open TCP connection after max attempts")
			os.Exit(1)
		}
	}
}
