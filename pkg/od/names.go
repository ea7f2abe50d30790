package od

import "github.com/bggardner/canopen-vhdl/pkg/vhdlfmt"

// bareConstantName/bareSignalName delegate to pkg/vhdlfmt, keeping the
// identifier-formatting rules in one place.
func bareConstantName(name string) (string, error) {
	return vhdlfmt.BareConstantName(name)
}

func bareSignalName(name string) (string, error) {
	return vhdlfmt.BareSignalName(name)
}
