// Command relayctl is an interactive console for Waveshare Modbus TCP relay
// boards. It connects to one board and lets you inspect and switch relay
// channels, drive flash commands, and read or set the flash interval.
//
// Usage:
//
//	relayctl -host 192.168.1.50 [-port 502] [-channels 8] [-name lab-relay]
//	relayctl -config devices.yaml [-device 192.168.1.50:502]
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/wavekit/waverelay"
)

func main() {
	host := flag.String("host", "", "IP address or hostname of the relay board")
	port := flag.Int("port", waverelay.DefaultPort, "Modbus TCP port")
	channels := flag.Int("channels", waverelay.DefaultChannels, "number of relay channels")
	name := flag.String("name", waverelay.DefaultName, "display name for the board")
	configPath := flag.String("config", "", "YAML device configuration file")
	device := flag.String("device", "", "device address (host:port) to pick from the config file")
	timeout := flag.Duration("timeout", waverelay.DefaultTimeout, "request timeout")
	logLevel := flag.String("log-level", "ERROR", "log level: DEBUG, INFO, WARNING, ERROR, NONE")
	flag.Parse()

	cfg, err := resolveConfig(*configPath, *device, *host, *port, *channels, *name, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}

	client, err := waverelay.NewClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	logger := waverelay.NewSimpleLogger(os.Stderr, waverelay.LevelError, "relayctl")
	if err := logger.SetLevelFromString(*logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
	client.SetLogger(logger)

	if err := client.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: cannot connect to %s: %v\n", cfg.Addr(), err)
		os.Exit(1)
	}
	fmt.Printf("Connected to %s (%s, %d channels)\n", cfg.Name, cfg.Addr(), cfg.Channels)

	if err := run(client); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig builds the device configuration from either the config file
// or the individual flags.
func resolveConfig(configPath, device, host string, port, channels int, name string, timeout time.Duration) (waverelay.DeviceConfig, error) {
	if configPath != "" {
		devices, err := waverelay.LoadDevices(configPath)
		if err != nil {
			return waverelay.DeviceConfig{}, err
		}
		if device == "" {
			if len(devices) > 1 {
				return waverelay.DeviceConfig{}, fmt.Errorf("config defines %d devices, pick one with -device", len(devices))
			}
			return devices[0], nil
		}
		for _, cfg := range devices {
			if cfg.Addr() == device {
				return cfg, nil
			}
		}
		return waverelay.DeviceConfig{}, fmt.Errorf("device %s not found in %s", device, configPath)
	}

	if host == "" {
		return waverelay.DeviceConfig{}, fmt.Errorf("either -host or -config is required")
	}
	cfg := waverelay.DeviceConfig{
		Name:     name,
		Host:     host,
		Port:     port,
		Channels: channels,
		Timeout:  timeout,
	}.WithDefaults()
	return cfg, cfg.Validate()
}

func run(client *waverelay.Client) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "relay> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	bank := waverelay.NewRelayBank(client)
	interval := waverelay.NewFlashIntervalSetting(client)

	printHelp()
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "?":
			printHelp()

		case "status", "st":
			cmdStatus(bank)

		case "on":
			cmdSwitch(bank, args, true)

		case "off":
			cmdSwitch(bank, args, false)

		case "flash":
			cmdFlash(client, args)

		case "stopflash":
			cmdStopFlash(client, args)

		case "interval":
			cmdInterval(interval, args)

		case "info":
			cmdInfo(client)

		case "exit", "quit", "q":
			return nil

		default:
			fmt.Printf("unknown command %q, try 'help'\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Print(`Commands:
  status                 show the state of all channels
  on <channel>           switch a channel on (1-based)
  off <channel>          switch a channel off
  flash <channel> <s>    flash a channel with the given interval in seconds
  stopflash <channel>    stop flashing a channel
  interval [value]       read or set the flash interval register (100ms units)
  info                   show device address and software version
  exit                   quit
`)
}

// parseChannel converts a 1-based channel argument to a 0-based index.
func parseChannel(args []string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing channel number")
	}
	ch, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid channel number %q", args[0])
	}
	return ch - 1, nil
}

func cmdStatus(bank *waverelay.RelayBank) {
	states, err := bank.GetDetailedState()
	if err != nil {
		fmt.Printf("failed to read status: %v\n", err)
		return
	}
	for i, on := range states {
		state := "off"
		if on {
			state = "on "
		}
		fmt.Printf("  channel %2d: %s\n", i+1, state)
	}
}

func cmdSwitch(bank *waverelay.RelayBank, args []string, on bool) {
	index, err := parseChannel(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	sw, err := bank.GetSwitch(index)
	if err != nil {
		fmt.Println(err)
		return
	}
	if on {
		err = sw.TurnOn()
	} else {
		err = sw.TurnOff()
	}
	if err != nil {
		fmt.Printf("switch failed: %v\n", err)
		return
	}
	fmt.Printf("channel %d switched %s\n", index+1, map[bool]string{true: "on", false: "off"}[on])
}

func cmdFlash(client *waverelay.Client, args []string) {
	index, err := parseChannel(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	if len(args) < 2 {
		fmt.Println("missing interval in seconds")
		return
	}
	seconds, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Printf("invalid interval %q\n", args[1])
		return
	}
	// The board counts in 100ms units.
	if err := client.FlashOn(index, int(seconds*10)); err != nil {
		fmt.Printf("flash failed: %v\n", err)
		return
	}
	fmt.Printf("channel %d flashing every %.1fs\n", index+1, seconds)
}

func cmdStopFlash(client *waverelay.Client, args []string) {
	index, err := parseChannel(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := client.FlashOff(index); err != nil {
		fmt.Printf("stop flash failed: %v\n", err)
		return
	}
	fmt.Printf("channel %d flash stopped\n", index+1)
}

func cmdInterval(setting *waverelay.FlashIntervalSetting, args []string) {
	if len(args) == 0 {
		value, err := setting.Value()
		if err != nil {
			fmt.Printf("failed to read flash interval: %v\n", err)
			return
		}
		fmt.Printf("flash interval: %d (%.1fs)\n", value, float64(value)/10)
		return
	}
	value, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("invalid interval %q\n", args[0])
		return
	}
	if err := setting.Set(value); err != nil {
		fmt.Printf("failed to set flash interval: %v\n", err)
		return
	}
	fmt.Printf("flash interval set to %d (%.1fs)\n", value, float64(value)/10)
}

func cmdInfo(client *waverelay.Client) {
	addr, err := client.ReadDeviceAddress()
	if err != nil {
		fmt.Printf("failed to read device address: %v\n", err)
		return
	}
	version, err := client.ReadSoftwareVersion()
	if err != nil {
		fmt.Printf("failed to read software version: %v\n", err)
		return
	}
	fmt.Printf("device address: %d\nsoftware version: %s\n", addr, version)
}
