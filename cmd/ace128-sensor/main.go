// Command ace128-sensor reads a Bourns ACE-128 absolute encoder over GPIO and
// publishes debounced position changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/ace128-sensor/internal/ace128"
	"github.com/sweeney/ace128-sensor/internal/config"
	"github.com/sweeney/ace128-sensor/internal/gpio"
	"github.com/sweeney/ace128-sensor/internal/logic"
	"github.com/sweeney/ace128-sensor/internal/mqtt"
	"github.com/sweeney/ace128-sensor/internal/status"
	"github.com/sweeney/ace128-sensor/internal/web"
)

func main() {
	def := config.Default()
	configPath := flag.String("config", "", "YAML config file (flags override it)")
	backend := flag.String("backend", def.Backend, `GPIO backend: "gpiocdev" or "periph"`)
	chip := flag.String("chip", def.Chip, "GPIO chip for the gpiocdev backend")
	pins := flag.String("pins", "", "comma-separated BCM pin numbers for encoder pins P1..P8")
	pull := flag.String("pull", def.Pull, `input bias: "up", "down" or "none"`)
	poll := flag.Duration("poll", def.Poll, "GPIO polling interval")
	debounce := flag.Duration("debounce", def.Debounce, "Debounce duration")
	broker := flag.String("broker", def.Broker, "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", def.HTTP, "HTTP status address (empty to disable)")
	printState := flag.Bool("print-state", false, "Print current position and exit")
	printTable := flag.Bool("print-table", false, "Print the code to position table and exit")

	flag.Parse()

	if *printTable {
		writeTable(os.Stdout)
		return
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	// Only flags given on the command line override the file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "chip":
			cfg.Chip = *chip
		case "pins":
			p, err := parsePins(*pins)
			if err != nil {
				flagErr = fmt.Errorf("-pins: %w", err)
				return
			}
			cfg.Pins = p
		case "pull":
			cfg.Pull = *pull
		case "poll":
			cfg.Poll = *poll
		case "debounce":
			cfg.Debounce = *debounce
		case "broker":
			cfg.Broker = *broker
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP = *httpAddr
		}
	})
	if flagErr != nil {
		log.Fatalf("fatal: %v", flagErr)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printState bool) error {
	// Initialize GPIO
	pins, err := openPins(cfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	decoder, err := ace128.New(pins.Pins(), cfg.DecoderOptions()...)
	if err != nil {
		return fmt.Errorf("init decoder: %w", err)
	}

	// Print state mode
	if printState {
		return printPosition(os.Stdout, decoder)
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	log.Printf("started: backend=%s pins=%v poll=%v debounce=%v broker=%s heartbeat=%v",
		cfg.Backend, cfg.Pins, cfg.Poll, cfg.Debounce, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(decoder, publisher, publisher, tracker, cfg.Debounce, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

func openPins(cfg *config.Config) (gpio.Pins, error) {
	pull, err := gpio.ParsePull(cfg.Pull)
	if err != nil {
		return nil, err
	}
	if cfg.Backend == config.BackendPeriph {
		p, err := gpio.NewPeriphPins(cfg.Pins, pull)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	p, err := gpio.NewRealPins(cfg.Chip, cfg.Pins, pull)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTP,
		Backend:     cfg.Backend,
		Chip:        cfg.Chip,
		Pins:        cfg.Pins,
		Pull:        cfg.Pull,
		AngleRange:  cfg.AngleRange,
	}
}

func runLoop(decoder *ace128.Decoder, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, debounce, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(debounce, startTime, decoder.Angle)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			pos, ok, err := decoder.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				detector.RecordError()
				if tracker != nil {
					tracker.SetError(err)
					updateTracker(tracker, detector, decoder)
				}
				continue
			}

			if tracker != nil {
				r := status.Reading{Position: pos, Valid: ok, Time: t}
				if ok {
					r.Angle = decoder.Angle(pos)
				}
				tracker.SetReading(r)
			}

			events := detector.Process(logic.Input{
				Position: pos,
				Valid:    ok,
				Time:     t,
			})

			for _, event := range events {
				log.Printf("event: %s position=%d previous=%d delta=%+d", event.Type, event.Position, event.Previous, event.Delta)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if !detector.IsBaselined() {
				// Still waiting for baseline
				if tracker != nil {
					updateTracker(tracker, detector, decoder)
				}
				continue
			}

			// Check for heartbeat
			if hbData := detector.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v changes=%d invalid=%d errors=%d",
					hbData.Uptime, hbData.Counts.Changes, hbData.Counts.Invalid, hbData.Counts.Errors)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					updateTracker(tracker, detector, decoder)
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				updateTracker(tracker, detector, decoder)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

func updateTracker(tracker *status.Tracker, detector *logic.Detector, decoder *ace128.Decoder) {
	pos, baselined := detector.CurrentPosition()
	tracker.Update(pos, decoder.Angle(pos), baselined, detector.EventCountsSnapshot())
}

// printPosition performs one read and reports it.
func printPosition(w io.Writer, decoder *ace128.Decoder) error {
	states, err := decoder.SamplePins()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	code := ace128.Pack(states)
	pos, ok := ace128.Lookup(code)
	if !ok {
		fmt.Fprintf(w, "code: %08b, position: none (transitional), angle: %v\n", code, decoder.Fallback())
		return nil
	}
	fmt.Fprintf(w, "code: %08b, position: %d, angle: %.4f\n", code, pos, decoder.Angle(pos))
	return nil
}

// writeTable prints every reachable code, in position order.
func writeTable(w io.Writer) {
	fmt.Fprintln(w, "position  code      hex")
	for p := ace128.Position(0); p < ace128.NumPositions; p++ {
		code, _ := ace128.Code(p)
		fmt.Fprintf(w, "%8d  %08b  0x%02x\n", p, code, code)
	}
}

// parsePins parses "a,b,c,d,e,f,g,h" into BCM numbers for P1..P8.
func parsePins(s string) ([ace128.NumPins]int, error) {
	var pins [ace128.NumPins]int
	fields := strings.Split(s, ",")
	if len(fields) != ace128.NumPins {
		return pins, fmt.Errorf("want %d pins, got %d", ace128.NumPins, len(fields))
	}
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return pins, fmt.Errorf("P%d: %w", i+1, err)
		}
		pins[i] = n
	}
	return pins, nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
