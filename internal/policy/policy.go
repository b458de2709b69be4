// Package policy decides, per role, which procurement records a principal
// can see and which actions it may attempt. Repositories apply the scopes it
// returns so that visibility is enforced in the query itself.
package policy

import (
	"fmt"

	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/identity"
)

// Action names a role-gated operation.
type Action string

const (
	ActionCreateRFP   Action = "rfp.create"
	ActionPublishRFP  Action = "rfp.publish"
	ActionSubmitQuote Action = "quote.submit"
	ActionAwardQuote  Action = "quote.award"
	ActionDecideOrder Action = "order.decide"
	ActionApproveUser Action = "user.approve"
)

// RFPScope filters RFP listings. Zero values mean "no restriction".
type RFPScope struct {
	CreatedBy int64
	Status    entity.RFPStatus
}

// OrderScope filters purchase order listings. Zero values mean "no restriction".
type OrderScope struct {
	BuyerID  int64
	VendorID int64
}

// Policy is the role-specific visibility and permission strategy.
type Policy interface {
	Role() entity.Role
	RFPScope(p identity.Principal) RFPScope
	OrderScope(p identity.Principal) OrderScope
	CanReviewQuotes(p identity.Principal, rfp *entity.RFP) bool
	Allows(action Action) bool
}

var registry = map[entity.Role]Policy{
	entity.RoleBuyer:    buyerPolicy{},
	entity.RoleVendor:   vendorPolicy{},
	entity.RoleApprover: oversightPolicy{role: entity.RoleApprover},
	entity.RoleAdmin:    oversightPolicy{role: entity.RoleAdmin},
}

// For returns the policy registered for role.
func For(role entity.Role) (Policy, error) {
	pol, ok := registry[role]
	if !ok {
		return nil, fmt.Errorf("no policy for role %q", role)
	}
	return pol, nil
}

type buyerPolicy struct{}

func (buyerPolicy) Role() entity.Role { return entity.RoleBuyer }

func (buyerPolicy) RFPScope(p identity.Principal) RFPScope {
	return RFPScope{CreatedBy: p.UserID}
}

func (buyerPolicy) OrderScope(p identity.Principal) OrderScope {
	return OrderScope{BuyerID: p.UserID}
}

func (buyerPolicy) CanReviewQuotes(p identity.Principal, rfp *entity.RFP) bool {
	return rfp != nil && rfp.CreatedBy == p.UserID
}

func (buyerPolicy) Allows(action Action) bool {
	switch action {
	case ActionCreateRFP, ActionPublishRFP, ActionAwardQuote:
		return true
	default:
		return false
	}
}

// Vendors only ever see published RFPs.
type vendorPolicy struct{}

func (vendorPolicy) Role() entity.Role { return entity.RoleVendor }

func (vendorPolicy) RFPScope(identity.Principal) RFPScope {
	return RFPScope{Status: entity.RFPPublished}
}

func (vendorPolicy) OrderScope(p identity.Principal) OrderScope {
	return OrderScope{VendorID: p.UserID}
}

func (vendorPolicy) CanReviewQuotes(identity.Principal, *entity.RFP) bool { return false }

func (vendorPolicy) Allows(action Action) bool {
	return action == ActionSubmitQuote
}

type oversightPolicy struct {
	role entity.Role
}

func (o oversightPolicy) Role() entity.Role { return o.role }

func (oversightPolicy) RFPScope(identity.Principal) RFPScope { return RFPScope{} }

func (oversightPolicy) OrderScope(identity.Principal) OrderScope { return OrderScope{} }

func (oversightPolicy) CanReviewQuotes(identity.Principal, *entity.RFP) bool { return true }

func (o oversightPolicy) Allows(action Action) bool {
	switch action {
	case ActionDecideOrder:
		return true
	case ActionApproveUser:
		return o.role == entity.RoleAdmin
	default:
		return false
	}
}
