package od

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNegativeNodeIDOffset = errors.New("$NODEID-k default is not supported, only $NODEID[+k]")

// parseDefaultValue parses an EDS DefaultValue string into a DefaultExpr,
// preserving the "$NODEID[+k]" symbolic form through the whole pipeline
// instead of resolving it at generation time. bitLength is used only to
// size plain-literal parses.
func parseDefaultValue(raw string, bitLength int) (*DefaultExpr, error) {
	if raw == "" {
		return &DefaultExpr{Literal: 0}, nil
	}
	if strings.Contains(raw, "$NODEID-") {
		return nil, fmt.Errorf("%w: %q", ErrNegativeNodeIDOffset, raw)
	}
	if strings.HasPrefix(raw, "$NODEID") {
		rest := strings.TrimPrefix(raw, "$NODEID")
		rest = strings.TrimPrefix(rest, "+")
		if rest == "" {
			return &DefaultExpr{NodeIDOffset: true, Literal: 0}, nil
		}
		k, err := strconv.ParseUint(strings.TrimSpace(rest), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid $NODEID offset %q: %w", raw, err)
		}
		return &DefaultExpr{NodeIDOffset: true, Literal: k}, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid literal default %q: %w", raw, err)
	}
	return &DefaultExpr{Literal: v}, nil
}
