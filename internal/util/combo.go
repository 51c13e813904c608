package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var comboPattern = regexp.MustCompile(`(?i)^WS(\d+)-SEC(\d+)-SS(\d+)-ACC(\d+)$`)

// ComboKey is the 4-level grouping key decoded from a combo id.
type ComboKey struct {
	WS         int
	Section    int
	Subsection int
	Accessory  int
}

// DefaultComboKey is used for any combo id that does not parse.
var DefaultComboKey = ComboKey{WS: 1, Section: 1, Subsection: 1, Accessory: 0}

func (k ComboKey) String() string {
	return fmt.Sprintf("WS%d-SEC%d-SS%d-ACC%d", k.WS, k.Section, k.Subsection, k.Accessory)
}

// ParseComboKey decodes WS<n>-SEC<n>-SS<n>-ACC<n>. Malformed input falls back
// to DefaultComboKey, so such rows land in the first group.
func ParseComboKey(input string) ComboKey {
	key, _ := ParseComboKeyStrict(input)
	return key
}

// ParseComboKeyStrict is ParseComboKey with an ok flag that is false when
// the default key was substituted.
func ParseComboKeyStrict(input string) (ComboKey, bool) {
	m := comboPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return DefaultComboKey, false
	}
	var parts [4]int
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return DefaultComboKey, false
		}
		parts[i] = n
	}
	return ComboKey{WS: parts[0], Section: parts[1], Subsection: parts[2], Accessory: parts[3]}, true
}
