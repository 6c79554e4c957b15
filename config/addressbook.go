package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"

	"github.com/pickle-finance/timelock-viewer/timelock"
)

//go:embed pickle.toml
var defaultAddressBook []byte

// AddressBooks holds the names of the known timelocks and call targets.
type AddressBooks struct {
	Timelocks timelock.AddressBook
	Targets   timelock.AddressBook
}

type addressBookFile struct {
	Timelocks map[string]string `toml:"timelocks"`
	Targets   map[string]string `toml:"targets"`
}

// ParseAddressBooks parses a TOML address book with [timelocks] and [targets] tables mapping
// addresses to names.
func ParseAddressBooks(data []byte) (AddressBooks, error) {
	var f addressBookFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return AddressBooks{}, fmt.Errorf("failed to parse address book: %w", err)
	}

	timelocks, err := timelock.NewAddressBook(f.Timelocks)
	if err != nil {
		return AddressBooks{}, fmt.Errorf("timelocks: %w", err)
	}
	targets, err := timelock.NewAddressBook(f.Targets)
	if err != nil {
		return AddressBooks{}, fmt.Errorf("targets: %w", err)
	}

	return AddressBooks{Timelocks: timelocks, Targets: targets}, nil
}

// LoadAddressBooks reads the configured address book, or the built-in one.
func (c *Config) LoadAddressBooks() (AddressBooks, error) {
	if c.AddressBook == "" {
		return ParseAddressBooks(defaultAddressBook)
	}

	path := c.ResolvePath(c.AddressBook)
	data, err := os.ReadFile(path)
	if err != nil {
		return AddressBooks{}, fmt.Errorf("failed to read address book %s: %w", path, err)
	}

	return ParseAddressBooks(data)
}

// LoadInterfaces reads the ABI files of the configured extra interfaces. An interface without
// a version is registered as 0.0.0.
func (c *Config) LoadInterfaces() ([]timelock.Interface, error) {
	ifaces := make([]timelock.Interface, 0, len(c.Interfaces))
	for _, ic := range c.Interfaces {
		version := semver.New(0, 0, 0, "", "")
		if ic.Version != "" {
			v, err := semver.NewVersion(ic.Version)
			if err != nil {
				return nil, fmt.Errorf("interface %s: invalid version %q: %w", ic.Name, ic.Version, err)
			}
			version = v
		}

		path := c.ResolvePath(ic.ABIFile)
		abiJSON, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("interface %s: failed to read ABI %s: %w", ic.Name, path, err)
		}

		ifaces = append(ifaces, timelock.Interface{Name: ic.Name, Version: version, ABI: string(abiJSON)})
	}

	return ifaces, nil
}
