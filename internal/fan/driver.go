package fan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Driver abstracts the binary fan actuator.
type Driver interface {
	// Set commands the fan on or off.
	Set(on bool) error
	// Get reports the last commanded state.
	Get() bool
	// Available reports whether the hardware can be commanded at all.
	Available() bool
}

const gpioBase = "/sys/class/gpio"

// SysfsDriver drives a fan relay through the Linux GPIO sysfs interface.
type SysfsDriver struct {
	pin       int
	valuePath string
	on        bool
}

// NewSysfsDriver exports the pin and configures it as an output. Returns an
// error when the sysfs GPIO interface is missing or the pin cannot be
// exported; callers fall back to a SimDriver in that case.
func NewSysfsDriver(pin int) (*SysfsDriver, error) {
	pinDir := filepath.Join(gpioBase, fmt.Sprintf("gpio%d", pin))

	if _, err := os.Stat(pinDir); os.IsNotExist(err) {
		exportPath := filepath.Join(gpioBase, "export")
		if err := os.WriteFile(exportPath, []byte(fmt.Sprintf("%d", pin)), 0o200); err != nil {
			return nil, fmt.Errorf("export gpio pin %d: %w", pin, err)
		}
		// The kernel needs a moment to create the pin directory.
		time.Sleep(100 * time.Millisecond)
	}

	directionPath := filepath.Join(pinDir, "direction")
	if err := os.WriteFile(directionPath, []byte("out"), 0o200); err != nil {
		return nil, fmt.Errorf("set gpio pin %d direction: %w", pin, err)
	}

	d := &SysfsDriver{
		pin:       pin,
		valuePath: filepath.Join(pinDir, "value"),
	}
	if err := d.Set(false); err != nil {
		return nil, fmt.Errorf("initialize gpio pin %d: %w", pin, err)
	}
	return d, nil
}

// Set implements Driver.
func (d *SysfsDriver) Set(on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	if err := os.WriteFile(d.valuePath, []byte(value), 0o200); err != nil {
		return fmt.Errorf("write gpio pin %d value: %w", d.pin, err)
	}
	d.on = on
	return nil
}

// Get implements Driver.
func (d *SysfsDriver) Get() bool {
	data, err := os.ReadFile(d.valuePath)
	if err != nil {
		return d.on
	}
	return strings.TrimSpace(string(data)) == "1"
}

// Available implements Driver.
func (d *SysfsDriver) Available() bool {
	_, err := os.Stat(d.valuePath)
	return err == nil
}

// SimDriver is an in-memory fan driver for hosts without GPIO and for tests.
type SimDriver struct {
	mu          sync.Mutex
	on          bool
	unavailable bool
	setErr      error
	setCalls    int
}

// NewSimDriver returns a simulated driver that always accepts commands.
func NewSimDriver() *SimDriver {
	return &SimDriver{}
}

// Set implements Driver.
func (d *SimDriver) Set(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setCalls++
	if d.setErr != nil {
		return d.setErr
	}
	d.on = on
	return nil
}

// Get implements Driver.
func (d *SimDriver) Get() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

// Available implements Driver.
func (d *SimDriver) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.unavailable
}

// SetUnavailable marks the simulated hardware as missing.
func (d *SimDriver) SetUnavailable(unavailable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unavailable = unavailable
}

// FailWith makes subsequent Set calls return err (nil clears).
func (d *SimDriver) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setErr = err
}

// SetCalls reports how many times Set was invoked.
func (d *SimDriver) SetCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setCalls
}
