package password

import "unicode"

// Policy is the acceptance rule applied to candidate passwords during a
// reset. A zero Policy accepts everything.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Violation names a single unmet policy rule.
type Violation struct {
	Rule    string
	Message string
}

// Check evaluates candidate against the policy and returns every unmet
// rule. An empty slice means the password is acceptable.
func (p Policy) Check(candidate string) []Violation {
	var violations []Violation

	if p.MinLength > 0 && len(candidate) < p.MinLength {
		violations = append(violations, Violation{
			Rule:    "min_length",
			Message: "password is too short",
		})
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if p.RequireUpper && !hasUpper {
		violations = append(violations, Violation{
			Rule:    "require_upper",
			Message: "password needs an uppercase letter",
		})
	}
	if p.RequireLower && !hasLower {
		violations = append(violations, Violation{
			Rule:    "require_lower",
			Message: "password needs a lowercase letter",
		})
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, Violation{
			Rule:    "require_digit",
			Message: "password needs a digit",
		})
	}
	if p.RequireSymbol && !hasSymbol {
		violations = append(violations, Violation{
			Rule:    "require_symbol",
			Message: "password needs a symbol",
		})
	}

	return violations
}
