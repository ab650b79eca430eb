// Package postpolicy decides who may see a post.
//
// Authorization rules:
//   - Approved posts are visible to everyone, including anonymous viewers
//   - Pending and rejected posts are visible to their owner, matched by user ID
//     or by normalized phone against every phone-bearing field on the post
//   - A claimed identity from the request (userId/userPhone parameters) is
//     matched by the same rules; it is not verified
//   - Administrators see every post; callers set Viewer.IsAdmin from a
//     membership lookup, never from request input
//
// Handlers must answer a denial exactly as they answer a missing post.
package postpolicy

import (
	"github.com/dalemusser/testimonyhub/internal/app/system/phone"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
)

// Identity is a user ID and phone pair. Either may be empty.
type Identity struct {
	ID    string
	Phone string
}

// Viewer describes who is asking to see a post.
type Viewer struct {
	Session *Identity // verified session identity, nil when anonymous
	Claimed *Identity // out-of-band claim from request parameters, unverified
	IsAdmin bool
}

// Rule names the check that granted or denied access.
type Rule string

const (
	RuleApproved     Rule = "approved"
	RuleSessionID    Rule = "session_id"
	RuleSessionPhone Rule = "session_phone"
	RuleClaimedID    Rule = "claimed_id"
	RuleClaimedPhone Rule = "claimed_phone"
	RuleAdmin        Rule = "admin"
	RuleDenied       Rule = "denied"
)

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Rule    Rule
}

// CanView reports whether v may see p.
func CanView(p models.Post, v Viewer, n phone.Normalizer) bool {
	return Decide(p, v, n).Allowed
}

// Decide evaluates the viewer rules in order and reports which one matched.
func Decide(p models.Post, v Viewer, n phone.Normalizer) Decision {
	h := p.Header()
	if h.Status == models.StatusApproved {
		return Decision{Allowed: true, Rule: RuleApproved}
	}
	if v.Session != nil {
		if matchesID(h.Owner, *v.Session) {
			return Decision{Allowed: true, Rule: RuleSessionID}
		}
		if matchesPhone(h.Owner, *v.Session, n) {
			return Decision{Allowed: true, Rule: RuleSessionPhone}
		}
	}
	if v.Claimed != nil {
		if matchesID(h.Owner, *v.Claimed) {
			return Decision{Allowed: true, Rule: RuleClaimedID}
		}
		if matchesPhone(h.Owner, *v.Claimed, n) {
			return Decision{Allowed: true, Rule: RuleClaimedPhone}
		}
	}
	if v.IsAdmin {
		return Decision{Allowed: true, Rule: RuleAdmin}
	}
	return Decision{Allowed: false, Rule: RuleDenied}
}

// IsOwner reports whether id is the verified author of p.
// Only session identities may be passed here; claims never confer ownership.
func IsOwner(p models.Post, id Identity, n phone.Normalizer) bool {
	o := p.Header().Owner
	return matchesID(o, id) || matchesPhone(o, id, n)
}

func matchesID(o models.Owner, id Identity) bool {
	return id.ID != "" && o.UserID != "" && id.ID == o.UserID
}

func matchesPhone(o models.Owner, id Identity, n phone.Normalizer) bool {
	return n.MatchesAny(id.Phone, o.PhoneFields()...)
}
