package waverelay

import "fmt"

// Switch is a single controllable on/off output.
type Switch interface {
	TurnOn() error
	TurnOff() error
	GetState() (bool, error)
	String() string
}

// SwitchCollection is a bank of switches with bulk state access.
type SwitchCollection interface {
	CountSwitches() int
	ListSwitches() []Switch
	GetSwitch(id int) (Switch, error)
	GetDetailedState() ([]bool, error)
	TurnOn() error
	TurnOff() error
	Close() error
}

// RelaySwitch maps one relay channel of a Client to the Switch interface.
type RelaySwitch struct {
	client  *Client
	channel int
}

func (s *RelaySwitch) TurnOn() error  { return s.client.WriteCoil(s.channel, true) }
func (s *RelaySwitch) TurnOff() error { return s.client.WriteCoil(s.channel, false) }

func (s *RelaySwitch) GetState() (bool, error) { return s.client.ReadCoil(s.channel) }

// Flash starts flashing this channel with the given interval in 100ms units.
func (s *RelaySwitch) Flash(interval int) error { return s.client.FlashOn(s.channel, interval) }

// StopFlash stops flashing this channel.
func (s *RelaySwitch) StopFlash() error { return s.client.FlashOff(s.channel) }

// Channel returns the zero-based channel index of this switch.
func (s *RelaySwitch) Channel() int { return s.channel }

func (s *RelaySwitch) String() string {
	return fmt.Sprintf("%s relay %d", s.client.Config().Name, s.channel+1)
}

// RelayBank exposes all channels of one relay board as a SwitchCollection.
type RelayBank struct {
	client   *Client
	switches []Switch
}

// NewRelayBank builds the switch bank for a Client, one Switch per
// configured channel.
func NewRelayBank(client *Client) *RelayBank {
	channels := client.Config().Channels
	switches := make([]Switch, channels)
	for i := 0; i < channels; i++ {
		switches[i] = &RelaySwitch{client: client, channel: i}
	}
	return &RelayBank{client: client, switches: switches}
}

// CountSwitches returns the number of relay channels.
func (b *RelayBank) CountSwitches() int { return len(b.switches) }

// ListSwitches returns all switches in channel order.
func (b *RelayBank) ListSwitches() []Switch { return b.switches }

// GetSwitch returns the switch for a zero-based channel index.
func (b *RelayBank) GetSwitch(id int) (Switch, error) {
	if id < 0 || id >= len(b.switches) {
		return nil, &RangeError{Index: id, Channels: len(b.switches)}
	}
	return b.switches[id], nil
}

// GetDetailedState reads the state of every channel in a single request.
func (b *RelayBank) GetDetailedState() ([]bool, error) {
	return b.client.ReadCoils()
}

// TurnOn switches every channel on, one coil per write. The boards answer
// one Write Single Coil at a time, so a failure leaves earlier channels
// switched.
func (b *RelayBank) TurnOn() error {
	for _, s := range b.switches {
		if err := s.TurnOn(); err != nil {
			return err
		}
	}
	return nil
}

// TurnOff switches every channel off, one coil per write.
func (b *RelayBank) TurnOff() error {
	for _, s := range b.switches {
		if err := s.TurnOff(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying client session.
func (b *RelayBank) Close() error { return b.client.Close() }

func (b *RelayBank) String() string {
	return fmt.Sprintf("%s (%d channels)", b.client.Config().Name, len(b.switches))
}

// FlashIntervalSetting is a numeric setting bound to the board's flash
// interval holding register. Values are in 100ms units.
type FlashIntervalSetting struct {
	client  *Client
	address uint16
}

// NewFlashIntervalSetting binds the setting to the board's default flash
// interval register.
func NewFlashIntervalSetting(client *Client) *FlashIntervalSetting {
	return &FlashIntervalSetting{client: client, address: RegFlashInterval}
}

// Min returns the smallest accepted value.
func (f *FlashIntervalSetting) Min() int { return 0 }

// Max returns the largest accepted value, the 16-bit register limit.
func (f *FlashIntervalSetting) Max() int { return 0xFFFF }

// Step returns the value granularity.
func (f *FlashIntervalSetting) Step() int { return 1 }

// Value reads the current flash interval from the device.
func (f *FlashIntervalSetting) Value() (uint16, error) {
	return f.client.ReadHoldingRegister(f.address)
}

// Set writes the flash interval. Out-of-range values are rejected before any
// wire I/O.
func (f *FlashIntervalSetting) Set(value int) error {
	return f.client.WriteHoldingRegister(f.address, value)
}

func (f *FlashIntervalSetting) String() string {
	return fmt.Sprintf("%s flash interval", f.client.Config().Name)
}
