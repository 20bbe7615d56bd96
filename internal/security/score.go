// Package security derives a summary score from an email's
// authentication results.
package security

import (
	"strings"

	vaultsandbox "github.com/vaultsandbox/client-go"
	"github.com/vaultsandbox/client-go/authresults"
)

// CalculateScore rates an email 0-100. The base of 50 reflects the
// end-to-end encryption every delivered email already has; SPF, DKIM,
// DMARC and reverse DNS add the rest.
func CalculateScore(email *vaultsandbox.Email) int {
	score := 50

	auth := email.AuthResults
	if auth == nil {
		return score
	}

	if auth.SPF != nil && strings.EqualFold(auth.SPF.Status, authresults.StatusPass) {
		score += 15
	}
	if len(auth.DKIM) > 0 && strings.EqualFold(auth.DKIM[0].Status, authresults.StatusPass) {
		score += 20
	}
	if auth.DMARC != nil && strings.EqualFold(auth.DMARC.Status, authresults.StatusPass) {
		score += 10
	}
	if auth.ReverseDNS.Status() == authresults.StatusPass {
		score += 5
	}

	return score
}
