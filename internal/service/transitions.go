package service

import (
	"fmt"
	"strings"

	"github.com/haimph/transfer-approval-api/internal/models"
)

// transitionRule is one row of the workflow table: which role may move a
// request from one status to another, and the extra invariant that applies.
// Both the single-request handlers and the bulk processor evaluate the same
// table, so the two paths cannot drift apart.
type transitionRule struct {
	role               models.UserRole
	from               models.TransferStatus
	to                 models.TransferStatus
	needsReason        bool
	requesterOnly      bool
	designatedLeadOnly bool
}

var transitionRules = map[models.TransferAction][]transitionRule{
	models.ActionApprove: {
		{role: models.RoleLead, from: models.TransferStatusPending, to: models.TransferStatusApproved, designatedLeadOnly: true},
	},
	models.ActionConfirm: {
		{role: models.RoleDataProcessor, from: models.TransferStatusApproved, to: models.TransferStatusConfirmed},
	},
	models.ActionReject: {
		{role: models.RoleLead, from: models.TransferStatusPending, to: models.TransferStatusRejected, needsReason: true},
		{role: models.RoleDataProcessor, from: models.TransferStatusApproved, to: models.TransferStatusRejected, needsReason: true},
	},
	models.ActionCancel: {
		{role: models.RoleSupervisor, from: models.TransferStatusPending, to: models.TransferStatusCanceled, requesterOnly: true},
	},
}

var actionRoleHints = map[models.TransferAction]string{
	models.ActionApprove: "only a Lead can approve requests",
	models.ActionConfirm: "only a Data Processor can confirm requests",
	models.ActionReject:  "only a Lead or Data Processor can reject requests",
	models.ActionCancel:  "only a Supervisor can cancel requests",
}

// transitionDenial explains a refused transition. Forbidden denials are role
// failures; the rest are status or ownership rule violations.
type transitionDenial struct {
	message   string
	forbidden bool
}

func (d *transitionDenial) Error() string { return d.message }

// evaluateTransition checks one locked row against the rule table and returns
// either the applicable rule or a denial with a human-readable reason.
func evaluateTransition(action models.TransferAction, actor *models.JWTClaims, row *models.LockedTransfer, reason string) (*transitionRule, *transitionDenial) {
	rules, ok := transitionRules[action]
	if !ok {
		return nil, &transitionDenial{message: fmt.Sprintf("unknown action %q", action), forbidden: true}
	}

	var rule *transitionRule
	for i := range rules {
		if rules[i].role == actor.Role {
			rule = &rules[i]
			break
		}
	}
	if rule == nil {
		return nil, &transitionDenial{message: actionRoleHints[action], forbidden: true}
	}

	if rule.designatedLeadOnly && row.DesignatedLead != nil && *row.DesignatedLead != actor.UserID {
		designated := "another Lead"
		if row.DesignatedLeadName != nil {
			designated = *row.DesignatedLeadName
		}
		return nil, &transitionDenial{message: fmt.Sprintf("not the designated Lead for this slip (requires %s)", designated)}
	}

	if rule.requesterOnly && row.RequestedBy != actor.UserID {
		return nil, &transitionDenial{message: "only the original requester can cancel this request"}
	}

	if row.Status != rule.from {
		// Re-applying a finished transition is idempotently refused, never
		// silently re-applied.
		if row.Status == rule.to || row.Status.Terminal() {
			return nil, &transitionDenial{message: fmt.Sprintf("already %s", row.Status.Label())}
		}
		return nil, &transitionDenial{message: fmt.Sprintf("a %s can only %s %s requests (current: %s)",
			roleLabel(actor.Role), action, rule.from.Label(), row.Status.Label())}
	}

	if rule.needsReason && strings.TrimSpace(reason) == "" {
		return nil, &transitionDenial{message: "rejection reason is required"}
	}

	return rule, nil
}

func roleLabel(role models.UserRole) string {
	switch role {
	case models.RoleSupervisor:
		return "Supervisor"
	case models.RoleLead:
		return "Lead"
	case models.RoleDataProcessor:
		return "Data Processor"
	}
	return string(role)
}
