package security

import "strings"

const (
	MinPasswordLength = 8
	passwordSpecials  = "!@#$%^&*"
)

// PasswordChecks is the per-rule outcome of ValidatePassword.
type PasswordChecks struct {
	Length    bool `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
	Special   bool `json:"special"`
}

func (c PasswordChecks) All() bool {
	return c.Length && c.Uppercase && c.Lowercase && c.Number && c.Special
}

// ValidatePassword reports whether pw meets every strength rule, along with
// the result of each rule. Only ASCII letters count as upper or lower case.
func ValidatePassword(pw string) (bool, PasswordChecks) {
	c := PasswordChecks{Length: len(pw) >= MinPasswordLength}
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			c.Uppercase = true
		case r >= 'a' && r <= 'z':
			c.Lowercase = true
		case r >= '0' && r <= '9':
			c.Number = true
		case strings.ContainsRune(passwordSpecials, r):
			c.Special = true
		}
	}
	return c.All(), c
}
