package profile

import (
	"strings"

	"github.com/Southclaws/fault"
	"github.com/google/uuid"
)

var androidAutoUUID = uuid.MustParse("c26cf572-3369-4cf2-b5cc-d2cd130f5b2c")

// serviceNames maps service class UUIDs, as bare uppercase hex with
// leading zeros trimmed, to their names from the Bluetooth Assigned
// Numbers document.
var serviceNames = map[string]string{
	"1105": "OBEXObjectPush",
	"110A": "AudioSource",
	"110C": "A/V_RemoteControlTarget",
	"110E": "A/V_RemoteControl",
	"110F": "A/V_RemoteControlController",
	"1112": "Headset - Audio Gateway",
	"1115": "PANU",
	"1116": "NAP",
	"111F": "HandsfreeAudioGateway",
	"112F": "Phonebook Access - PSE",
	"1132": "Message Access Server",
	"1203": "GenericAudio",
	"1800": "Generic Access",
	"1801": "Generic Attribute service",
	"1855": "TMAS",

	strings.ToUpper(strings.ReplaceAll(androidAutoUUID.String(), "-", "")): "Android Auto Compatibility",
}

// ServiceName resolves a "0x..." hex UUID token from a PTS prompt to a
// service name. Unknown UUIDs resolve to the token itself.
func ServiceName(token string) string {
	key := strings.TrimLeft(strings.ToUpper(strings.TrimPrefix(token, "0x")), "0")

	if name, ok := serviceNames[key]; ok {
		return name
	}

	return token
}

// ServiceListRule describes the service list a browse is expected to
// report. Optional services may be absent entirely; movable services may
// appear at any position; everything else must appear in the Expected
// order.
type ServiceListRule struct {
	Expected []string
	Optional []string
	Movable  []string
}

// Verify checks a reported service name list against the rule.
func (r ServiceListRule) Verify(reported []string) error {
	present := make(map[string]bool, len(reported))
	for _, name := range reported {
		present[name] = true
	}

	absentOptional := make(map[string]bool, len(r.Optional))
	for _, name := range r.Optional {
		if !present[name] {
			absentOptional[name] = true
		}
	}

	movable := make(map[string]int)
	for _, name := range r.Movable {
		if !absentOptional[name] {
			movable[name]++
		}
	}

	// Movable services must all be present, in any order.
	reportedMovable := make(map[string]int)
	for _, name := range reported {
		if _, ok := movable[name]; ok {
			reportedMovable[name]++
		}
	}

	for name, count := range movable {
		if reportedMovable[name] != count {
			return fault.New("movable service " + name + " missing from the reported list")
		}
	}

	// The rest must match the expected order exactly.
	var want []string
	for _, name := range r.Expected {
		if !absentOptional[name] && movable[name] == 0 {
			want = append(want, name)
		}
	}

	var got []string
	for _, name := range reported {
		if movable[name] == 0 {
			got = append(got, name)
		}
	}

	if len(got) != len(want) {
		return fault.New("service list mismatch: reported [" + strings.Join(got, ", ") +
			"], expected [" + strings.Join(want, ", ") + "]")
	}

	for i := range want {
		if got[i] != want[i] {
			return fault.New("services out of order: reported " + got[i] + " where " + want[i] + " was expected")
		}
	}

	return nil
}
