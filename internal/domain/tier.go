package domain

// Tier orders permission levels. Higher tiers include the lower ones.
type Tier int

const (
	TierAnonymous Tier = iota
	TierUser
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierUser:
		return "user"
	case TierAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// TierFor computes the permission tier of u. A nil user is anonymous.
func TierFor(u *User) Tier {
	switch {
	case u == nil || !u.IsActive:
		return TierAnonymous
	case u.IsPrivileged():
		return TierAdmin
	case u.IsVerified:
		return TierUser
	default:
		return TierAnonymous
	}
}

// Identity is the authenticated caller as seen by protected endpoints.
type Identity struct {
	UserID string
	Email  string
	Tier   Tier
}
