package auth

// Claim names carried in session tokens.
const (
	ClaimSubject            = "sub"
	ClaimUsername           = "username"
	ClaimEmail              = "email"
	ClaimRole               = "role"
	ClaimRoles              = "roles"
	ClaimVerificationStatus = "VerificationStatus"
	ClaimSecurityStamp      = "SecurityStamp"
	ClaimTokenID            = "jti"
)

// Claim is a single name/value pair carried in a session token.
type Claim struct {
	Name  string
	Value string
}

// Claims is an ordered list of claims. Duplicate names are permitted;
// consumers must treat the collection as a multiset.
type Claims []Claim

// Add appends a claim.
func (c *Claims) Add(name, value string) {
	*c = append(*c, Claim{Name: name, Value: value})
}

// First returns the first value recorded for name.
func (c Claims) First(name string) (string, bool) {
	for _, claim := range c {
		if claim.Name == name {
			return claim.Value, true
		}
	}
	return "", false
}

// Values returns every value recorded for name, in order.
func (c Claims) Values(name string) []string {
	var values []string
	for _, claim := range c {
		if claim.Name == name {
			values = append(values, claim.Value)
		}
	}
	return values
}
