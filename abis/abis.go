// Package abis holds the contract interfaces the viewer registers by default.
package abis

import (
	_ "embed"

	"github.com/Masterminds/semver/v3"
	"github.com/smartcontractkit/mcms/sdk/evm/bindings"

	"github.com/pickle-finance/timelock-viewer/timelock"
)

var (
	//go:embed timelock.json
	timelockABI string

	//go:embed masterchef.json
	masterchefABI string

	//go:embed gnosis_safe.json
	gnosisSafeABI string
)

// Interface names of the built-in ABIs.
const (
	Timelock          = "Timelock"
	MasterChef        = "MasterChef"
	GnosisSafe        = "GnosisSafe"
	RBACTimelock      = "RBACTimelock"
	ManyChainMultiSig = "ManyChainMultiSig"
)

// Builtin returns the default interfaces in registration order: the Compound-style timelock,
// the reward distributor, the Safe multisig and the MCMS governance contracts. Earlier
// entries take precedence for shared selectors.
func Builtin() []timelock.Interface {
	return []timelock.Interface{
		{Name: Timelock, Version: semver.MustParse("1.0.0"), ABI: timelockABI},
		{Name: MasterChef, Version: semver.MustParse("1.0.0"), ABI: masterchefABI},
		{Name: GnosisSafe, Version: semver.MustParse("1.1.1"), ABI: gnosisSafeABI},
		{Name: RBACTimelock, Version: semver.MustParse("1.0.0"), ABI: bindings.RBACTimelockMetaData.ABI},
		{Name: ManyChainMultiSig, Version: semver.MustParse("1.0.0"), ABI: bindings.ManyChainMultiSigMetaData.ABI},
	}
}

// NewRegistry returns a registry with the built-in interfaces followed by extra.
func NewRegistry(extra ...timelock.Interface) (*timelock.Registry, error) {
	return timelock.NewRegistry(append(Builtin(), extra...)...)
}
