package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/identity"
)

func TestForUnknownRole(t *testing.T) {
	_, err := For(entity.Role("auditor"))
	require.Error(t, err)
}

func TestRFPScopes(t *testing.T) {
	buyer := identity.Principal{UserID: 7, Role: entity.RoleBuyer}
	vendor := identity.Principal{UserID: 9, Role: entity.RoleVendor}

	pol, err := For(entity.RoleBuyer)
	require.NoError(t, err)
	require.Equal(t, RFPScope{CreatedBy: 7}, pol.RFPScope(buyer))

	pol, err = For(entity.RoleVendor)
	require.NoError(t, err)
	require.Equal(t, RFPScope{Status: entity.RFPPublished}, pol.RFPScope(vendor))

	for _, role := range []entity.Role{entity.RoleApprover, entity.RoleAdmin} {
		pol, err = For(role)
		require.NoError(t, err)
		require.Equal(t, RFPScope{}, pol.RFPScope(identity.Principal{UserID: 1, Role: role}))
		require.Equal(t, OrderScope{}, pol.OrderScope(identity.Principal{UserID: 1, Role: role}))
	}
}

func TestOrderScopes(t *testing.T) {
	pol, _ := For(entity.RoleBuyer)
	require.Equal(t, OrderScope{BuyerID: 3}, pol.OrderScope(identity.Principal{UserID: 3, Role: entity.RoleBuyer}))

	pol, _ = For(entity.RoleVendor)
	require.Equal(t, OrderScope{VendorID: 4}, pol.OrderScope(identity.Principal{UserID: 4, Role: entity.RoleVendor}))
}

func TestCanReviewQuotes(t *testing.T) {
	rfp := &entity.RFP{ID: 1, CreatedBy: 7}

	buyer, _ := For(entity.RoleBuyer)
	require.True(t, buyer.CanReviewQuotes(identity.Principal{UserID: 7}, rfp))
	require.False(t, buyer.CanReviewQuotes(identity.Principal{UserID: 8}, rfp))

	vendor, _ := For(entity.RoleVendor)
	require.False(t, vendor.CanReviewQuotes(identity.Principal{UserID: 7}, rfp))

	approver, _ := For(entity.RoleApprover)
	require.True(t, approver.CanReviewQuotes(identity.Principal{UserID: 99}, rfp))
}

func TestAllows(t *testing.T) {
	cases := []struct {
		role    entity.Role
		action  Action
		allowed bool
	}{
		{entity.RoleBuyer, ActionCreateRFP, true},
		{entity.RoleBuyer, ActionAwardQuote, true},
		{entity.RoleBuyer, ActionDecideOrder, false},
		{entity.RoleVendor, ActionSubmitQuote, true},
		{entity.RoleVendor, ActionCreateRFP, false},
		{entity.RoleApprover, ActionDecideOrder, true},
		{entity.RoleApprover, ActionApproveUser, false},
		{entity.RoleAdmin, ActionDecideOrder, true},
		{entity.RoleAdmin, ActionApproveUser, true},
		{entity.RoleAdmin, ActionSubmitQuote, false},
	}
	for _, tc := range cases {
		pol, err := For(tc.role)
		require.NoError(t, err)
		require.Equal(t, tc.allowed, pol.Allows(tc.action), "%s %s", tc.role, tc.action)
	}
}
