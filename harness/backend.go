package harness

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
)

// Backend kinds accepted on the command line and in config files.
const (
	KindVirt      = "virt"
	KindVerilator = "verilator"
)

// KnownBackends returns the supported backend kinds.
func KnownBackends() []string {
	return []string{KindVirt, KindVerilator}
}

// uartAnnounce is the endpoint announcement both backends print: the
// Verilator uartdpi emits it, and the built-in emulator mimics it so
// one pattern serves both.
var uartAnnounce = regexp.MustCompile(`UART: Created (\S+) for uart0\.`)

// VirtBackend hosts the device core in the functional emulator built
// into this binary, re-executed as a child process.
type VirtBackend struct {
	// Executable is the emulator binary. Empty means this binary.
	Executable string
	// ClockHz is the modeled core frequency. Zero keeps the emulator
	// default.
	ClockHz uint64
}

func (b VirtBackend) Name() string { return KindVirt }

func (b VirtBackend) Command() (*exec.Cmd, error) {
	exe := b.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve own executable: %w", err)
		}
		exe = self
	}

	args := []string{"emulate"}
	if b.ClockHz != 0 {
		args = append(args, "--clock-hz", strconv.FormatUint(b.ClockHz, 10))
	}
	return exec.Command(exe, args...), nil
}

func (b VirtBackend) Endpoint(line string) (string, bool) {
	m := uartAnnounce.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// VerilatorBackend hosts real firmware in the cycle-accurate chip
// simulator. The three artifacts are externally produced inputs, passed
// through unmodified.
type VerilatorBackend struct {
	Simulator string
	BootROM   string
	OTPImage  string
}

// Env var fallbacks for the Verilator artifacts, matching the names the
// chip build exports.
const (
	EnvVerilatorSim = "VERILATOR_SIM"
	EnvVerilatorROM = "VERILATOR_ROM"
	EnvVerilatorOTP = "VERILATOR_OTP"
)

// ResolveVerilator fills unset artifact paths from the environment and
// verifies all three exist.
func ResolveVerilator(b VerilatorBackend) (VerilatorBackend, error) {
	if b.Simulator == "" {
		b.Simulator = os.Getenv(EnvVerilatorSim)
	}
	if b.BootROM == "" {
		b.BootROM = os.Getenv(EnvVerilatorROM)
	}
	if b.OTPImage == "" {
		b.OTPImage = os.Getenv(EnvVerilatorOTP)
	}

	for _, artifact := range []struct {
		name, path string
	}{
		{"chip simulator", b.Simulator},
		{"boot ROM image", b.BootROM},
		{"OTP image", b.OTPImage},
	} {
		if artifact.path == "" {
			return b, fmt.Errorf("verilator %s not configured", artifact.name)
		}
		if _, err := os.Stat(artifact.path); err != nil {
			return b, fmt.Errorf("verilator %s: %w", artifact.name, err)
		}
	}
	return b, nil
}

func (b VerilatorBackend) Name() string { return KindVerilator }

func (b VerilatorBackend) Command() (*exec.Cmd, error) {
	return exec.Command(b.Simulator,
		"--meminit=rom,"+b.BootROM,
		"--meminit=otp,"+b.OTPImage,
	), nil
}

func (b VerilatorBackend) Endpoint(line string) (string, bool) {
	m := uartAnnounce.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
