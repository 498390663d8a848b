package ideas

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// maxTimecodeField bounds the minutes or hours part so the sum cannot overflow.
const maxTimecodeField = 1_000_000

var (
	reIntPart = regexp.MustCompile(`^\d+$`)
	reSecPart = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// TimecodeError reports a timecode the model wrote that cannot be read.
type TimecodeError struct {
	Value  string
	Reason string
}

func (e *TimecodeError) Error() string {
	return fmt.Sprintf("invalid timecode %q: %s", e.Value, e.Reason)
}

// ParseTimecode reads "MM:SS" or "H:MM:SS" into seconds. Minutes in the two
// part form may exceed 59 ("75:00"); seconds may carry a fraction.
func ParseTimecode(s string) (float64, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, &TimecodeError{Value: s, Reason: "empty"}
	}
	parts := strings.Split(v, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, &TimecodeError{Value: s, Reason: "want MM:SS or H:MM:SS"}
	}

	secPart := parts[len(parts)-1]
	if !reSecPart.MatchString(secPart) {
		return 0, &TimecodeError{Value: s, Reason: "bad seconds"}
	}
	sec, err := strconv.ParseFloat(secPart, 64)
	if err != nil || sec >= 60 {
		return 0, &TimecodeError{Value: s, Reason: "seconds out of range"}
	}

	ints := make([]int, 0, 2)
	for _, p := range parts[:len(parts)-1] {
		if !reIntPart.MatchString(p) {
			return 0, &TimecodeError{Value: s, Reason: "bad minutes or hours"}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > maxTimecodeField {
			return 0, &TimecodeError{Value: s, Reason: "minutes or hours out of range"}
		}
		ints = append(ints, n)
	}

	if len(ints) == 1 {
		return float64(ints[0]*60) + sec, nil
	}
	if ints[1] >= 60 {
		return 0, &TimecodeError{Value: s, Reason: "minutes out of range"}
	}
	return float64(ints[0]*3600+ints[1]*60) + sec, nil
}

// FormatTimecode renders whole seconds as "MM:SS", the form used in prompts.
// Minutes are not wrapped into hours so the output always parses back with
// ParseTimecode.
func FormatTimecode(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
