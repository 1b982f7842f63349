// Command oscmon listens for OSC packets, prints them and counts the
// messages a bridge emits per address.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chabad360/osc-bridge/config"
	"github.com/chabad360/osc-bridge/osc"
)

func main() {
	addr := flag.String("listen", fmt.Sprintf("0.0.0.0:%d", config.DefaultServerPort), "UDP address to listen on")
	base := flag.String("base", config.DefaultAddressBase, "Address base of the bridge")
	quiet := flag.Bool("quiet", false, "Only print the summary")
	interval := flag.Duration("summary", 10*time.Second, "Summary interval (0 prints only on exit)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	var params []string
	for _, p := range config.Default().Params {
		params = append(params, p.Name)
	}

	m, err := newMonitor(os.Stdout, *base, params, *quiet)
	if err != nil {
		slog.Error("failed to set up monitor", "error", err)
		os.Exit(1)
	}

	conn, err := net.ListenPacket("udp", *addr)
	if err != nil {
		slog.Error("failed to listen", "addr", *addr, "error", err)
		os.Exit(1)
	}

	fmt.Println("### oscmon listening on", conn.LocalAddr())

	server := &osc.Server{Handler: m.handle}
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(conn)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var tick <-chan time.Time
	if *interval > 0 {
		t := time.NewTicker(*interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-tick:
			m.summary()
		case <-sigChan:
			conn.Close()
			<-errChan
			m.summary()
			return
		case err := <-errChan:
			m.summary()
			if err != nil {
				slog.Error("server stopped", "error", err)
				os.Exit(1)
			}
			return
		}
	}
}
