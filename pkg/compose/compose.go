// Package compose combines the original field text, a resolved address and a
// pin link into the final field content.
package compose

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy selects how original text, address and link are combined.
type Policy string

const (
	// PolicyNone replaces the field with the bare link.
	PolicyNone Policy = "none"
	// PolicyLink keeps the original text and appends the link.
	PolicyLink Policy = "link"
	// PolicyAddressAndLink writes the address followed by the link.
	PolicyAddressAndLink Policy = "address_and_link"
	// PolicyAll keeps the original, then the address, then the link.
	PolicyAll Policy = "all"
)

// Policies lists every valid policy in display order.
var Policies = []Policy{PolicyNone, PolicyLink, PolicyAddressAndLink, PolicyAll}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown append policy %q", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParsePolicy(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Labels are literal prefixes for the address and link lines.
type Labels struct {
	Address string
	Link    string
}

// Input holds the parts to combine. Empty strings count as absent.
type Input struct {
	Original string
	Address  string
	Link     string
}

// Compose returns the final text for policy, lines joined by "\n".
// PolicyNone and unknown policies yield the bare, unlabelled link.
func Compose(in Input, policy Policy, labels Labels) string {
	addrLine := labels.Address + in.Address
	linkLine := labels.Link + in.Link

	switch policy {
	case PolicyLink:
		if in.Original != "" {
			return join(in.Original, linkLine)
		}
		return linkLine
	case PolicyAddressAndLink:
		if in.Address != "" {
			return join(addrLine, linkLine)
		}
		return linkLine
	case PolicyAll:
		switch {
		case in.Original != "" && in.Address != "":
			return join(in.Original, addrLine, linkLine)
		case in.Original != "":
			return join(in.Original, linkLine)
		case in.Address != "":
			return join(addrLine, linkLine)
		}
		return linkLine
	default:
		return in.Link
	}
}

func join(lines ...string) string {
	return strings.Join(lines, "\n")
}

var newlineRe = regexp.MustCompile(`\r?\n`)

// SingleLine replaces every line break with sep, for fields that cannot hold one.
func SingleLine(text, sep string) string {
	return newlineRe.ReplaceAllLiteralString(text, sep)
}
