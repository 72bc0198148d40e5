package verification

import "strings"

// CountryCode is prefixed to every network identifier.
const CountryCode = "55"

// Digits strips everything except ASCII digits from raw.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Candidates returns the network identifiers to try for raw, in priority order:
//
//  1. the digits as given, with the country code ensured;
//  2. for 11-digit local numbers whose third digit is the mobile 9, the number without it;
//  3. for 10-digit local numbers, the number with a 9 inserted after the area code.
//
// An input without any digit yields no candidates, so the bare country code is
// never queried and such an entry is reported as not found.
func Candidates(raw string) []string {
	numDigits := Digits(raw)
	if numDigits == "" {
		return nil
	}
	pureNum := strings.TrimPrefix(numDigits, CountryCode)

	out := make([]string, 0, 2)
	if strings.HasPrefix(numDigits, CountryCode) {
		out = append(out, numDigits)
	} else {
		out = append(out, CountryCode+numDigits)
	}
	if len(pureNum) == 11 && pureNum[2] == '9' {
		out = append(out, CountryCode+pureNum[:2]+pureNum[3:])
	}
	if len(pureNum) == 10 {
		out = append(out, CountryCode+pureNum[:2]+"9"+pureNum[2:])
	}
	return out
}
