package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/utafrali/GymTrack/internal/domain"
)

const resetKeySalt = "gymtrack.auth.password-reset"

// IssueResetToken returns a password-reset token for u of the form
// "<base36 unix seconds>-<hex mac>". The MAC covers the user's id, current
// password hash and email, so any change to them invalidates the token
// without server-side storage.
func (m *TokenManager) IssueResetToken(u *domain.User) string {
	return m.resetToken(u, m.now().Unix())
}

// CheckResetToken reports whether token was issued for u's current state and
// is inside the reset window.
func (m *TokenManager) CheckResetToken(u *domain.User, token string) bool {
	if u == nil || token == "" {
		return false
	}
	tsPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || ts < 0 {
		return false
	}

	if !hmac.Equal([]byte(m.resetToken(u, ts)), []byte(token)) {
		return false
	}

	age := m.now().Unix() - ts
	return age >= 0 && age <= int64(m.cfg.ResetTTL.Seconds())
}

func (m *TokenManager) resetToken(u *domain.User, ts int64) string {
	tsPart := strconv.FormatInt(ts, 36)

	mac := hmac.New(sha256.New, m.resetKey())
	for _, part := range []string{u.ID, u.PasswordHash, u.Email, tsPart} {
		mac.Write([]byte(part))
		mac.Write([]byte{0})
	}
	return tsPart + "-" + hex.EncodeToString(mac.Sum(nil))
}

// resetKey separates reset MACs from JWT signatures made with the same secret.
func (m *TokenManager) resetKey() []byte {
	k := hmac.New(sha256.New, m.secret)
	k.Write([]byte(resetKeySalt))
	return k.Sum(nil)
}
