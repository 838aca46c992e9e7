package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

func slotLabel(slot models.Slot) string {
	label := slot.StartsAt.Format("Mon, 2 Jan 2006 15:04")
	if slot.Room != "" {
		label += ", " + slot.Room
	}
	if slot.Building != "" {
		label += " (" + slot.Building + ")"
	}
	return label
}

func supervisorRequestBody(baseURL string, reg models.Registration, slot models.Slot, presenter models.Presenter) string {
	token := ""
	if reg.ApprovalToken != nil {
		token = *reg.ApprovalToken
	}
	base := strings.TrimRight(baseURL, "/")
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s has registered to present at the seminar slot on %s.</p>",
		html.EscapeString(presenter.FullName()), html.EscapeString(slotLabel(slot)))
	if reg.Topic != "" {
		fmt.Fprintf(&b, "<p>Topic: %s</p>", html.EscapeString(reg.Topic))
	}
	fmt.Fprintf(&b, `<p><a href="%s/approvals/%s/approve">Approve</a> &nbsp; <a href="%s/approvals/%s/decline">Decline</a></p>`,
		base, token, base, token)
	if reg.TokenExpiresAt != nil {
		fmt.Fprintf(&b, "<p>This link expires on %s.</p>", reg.TokenExpiresAt.Format("2 Jan 2006 15:04 MST"))
	}
	return b.String()
}

func approvalDecisionBody(presenter models.Presenter, slot models.Slot, approved bool, reason string) string {
	var b strings.Builder
	if approved {
		fmt.Fprintf(&b, "<p>Hi %s, your supervisor approved your registration for the seminar slot on %s.</p>",
			html.EscapeString(presenter.FirstName), html.EscapeString(slotLabel(slot)))
	} else {
		fmt.Fprintf(&b, "<p>Hi %s, your supervisor declined your registration for the seminar slot on %s.</p>",
			html.EscapeString(presenter.FirstName), html.EscapeString(slotLabel(slot)))
		if reason != "" {
			fmt.Fprintf(&b, "<p>Reason: %s</p>", html.EscapeString(reason))
		}
	}
	return b.String()
}

func promotionOfferBody(presenter models.Presenter, slot models.Slot, reg models.Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s, a seat opened up in the seminar slot on %s and you were next on the waiting list.</p>",
		html.EscapeString(presenter.FirstName), html.EscapeString(slotLabel(slot)))
	if reg.ApprovalStatus == models.ApprovalPending {
		b.WriteString("<p>Your supervisor has been asked to confirm the registration.</p>")
	} else {
		b.WriteString("<p>Your registration is confirmed.</p>")
	}
	return b.String()
}

func cancellationBody(details domain.CancellationDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s has withdrawn from the seminar schedule", html.EscapeString(details.Presenter))
	if details.SlotLabel != "" {
		fmt.Fprintf(&b, " (%s)", html.EscapeString(details.SlotLabel))
	}
	b.WriteString(".</p>")
	if details.Topic != "" {
		fmt.Fprintf(&b, "<p>Topic: %s</p>", html.EscapeString(details.Topic))
	}
	return b.String()
}
