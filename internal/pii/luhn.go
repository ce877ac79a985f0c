package pii

// LuhnValid reports whether the digit string passes the Luhn checksum.
// Non-digits are ignored; fewer than two digits never validate.
func LuhnValid(s string) bool {
	digits := DigitsOf(s)
	if len(digits) < 2 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// LuhnCheckDigit returns the digit that completes payload to a valid number.
func LuhnCheckDigit(payload string) byte {
	digits := DigitsOf(payload)
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}
