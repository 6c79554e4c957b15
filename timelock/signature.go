package timelock

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ParseSignatureTypes extracts the parameter type list of a function signature such as
// "setPendingAdmin(address)". Only top-level commas separate types, so tuple types like
// "(uint256,address)[]" are returned whole. "foo()" yields an empty list.
func ParseSignatureTypes(signature string) ([]string, error) {
	open := strings.IndexByte(signature, '(')
	if open < 0 {
		return nil, NewSignatureParseError(signature, "missing '('")
	}

	closing, err := matchingParen(signature, open)
	if err != nil {
		return nil, NewSignatureParseError(signature, err.Error())
	}
	if rest := strings.TrimSpace(signature[closing+1:]); rest != "" {
		return nil, NewSignatureParseError(signature, fmt.Sprintf("unexpected %q after parameter list", rest))
	}

	types, err := splitTopLevel(signature[open+1 : closing])
	if err != nil {
		return nil, NewSignatureParseError(signature, err.Error())
	}

	return types, nil
}

// matchingParen returns the index of the ')' that closes the '(' at open.
func matchingParen(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}

	return 0, fmt.Errorf("unbalanced parentheses")
}

// splitTopLevel splits a comma separated type list, leaving nested tuples intact. Parameter
// names following a type ("address target") are dropped.
func splitTopLevel(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return []string{}, nil
	}

	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i <= len(list); i++ {
		if i < len(list) {
			switch list[i] {
			case '(':
				depth++
				continue
			case ')':
				depth--
				if depth < 0 {
					return nil, fmt.Errorf("unbalanced parentheses")
				}
				continue
			case ',':
				if depth > 0 {
					continue
				}
			default:
				continue
			}
		}

		part := strings.TrimSpace(list[start:i])
		if part == "" {
			return nil, fmt.Errorf("empty type at position %d", len(out))
		}
		out = append(out, stripParamName(part))
		start = i + 1
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses")
	}

	return out, nil
}

func stripParamName(part string) string {
	// the name, if any, follows the last closing paren of a tuple type
	tail := strings.LastIndexByte(part, ')')
	if fields := strings.Fields(part[tail+1:]); len(fields) > 1 {
		return strings.TrimSpace(part[:tail+1] + fields[0])
	}

	return part
}

// newArgumentType builds a go-ethereum type from a signature type string, expanding tuple
// notation into named components.
func newArgumentType(typ string) (abi.Type, error) {
	name, components, err := argumentMarshaling(typ)
	if err != nil {
		return abi.Type{}, err
	}

	return abi.NewType(name, "", components)
}

func argumentMarshaling(typ string) (string, []abi.ArgumentMarshaling, error) {
	typ = strings.TrimSpace(typ)
	if !strings.HasPrefix(typ, "(") {
		return expandIntAlias(typ), nil, nil
	}

	closing, err := matchingParen(typ, 0)
	if err != nil {
		return "", nil, err
	}
	elems, err := splitTopLevel(typ[1:closing])
	if err != nil {
		return "", nil, err
	}

	components := make([]abi.ArgumentMarshaling, len(elems))
	for i, elem := range elems {
		elemType, elemComponents, err := argumentMarshaling(elem)
		if err != nil {
			return "", nil, err
		}
		components[i] = abi.ArgumentMarshaling{
			Name:       fmt.Sprintf("field%d", i),
			Type:       elemType,
			Components: elemComponents,
		}
	}

	// array suffixes such as "[]" or "[2]" carry over to the tuple
	return "tuple" + typ[closing+1:], components, nil
}

// expandIntAlias rewrites the Solidity aliases uint and int, with any array suffix, to their
// 256-bit forms.
func expandIntAlias(typ string) string {
	base, suffix := typ, ""
	if i := strings.IndexByte(typ, '['); i >= 0 {
		base, suffix = typ[:i], typ[i:]
	}
	if base == "uint" || base == "int" {
		return base + "256" + suffix
	}

	return typ
}
