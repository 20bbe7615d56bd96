// Package authresults models the sender-authentication verdicts the
// gateway records while receiving an email: SPF, DKIM, DMARC and a
// reverse-DNS check on the connecting host.
package authresults

import "strings"

// Status values shared by all checks.
const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusNone = "none"
)

// AuthResults aggregates every authentication check for one email. Any
// field may be nil/empty when the gateway did not run that check.
type AuthResults struct {
	SPF        *SPFResult        `json:"spf,omitempty"`
	DKIM       []DKIMResult      `json:"dkim,omitempty"`
	DMARC      *DMARCResult      `json:"dmarc,omitempty"`
	ReverseDNS *ReverseDNSResult `json:"reverseDns,omitempty"`
}

// SPFResult is the SPF verdict for the envelope sender's domain.
type SPFResult struct {
	Status string `json:"status"`
	Domain string `json:"domain,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// DKIMResult is the verdict for one DKIM signature. An email may carry
// several.
type DKIMResult struct {
	Status   string `json:"status"`
	Domain   string `json:"domain,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// DMARCResult is the DMARC evaluation combining SPF and DKIM alignment.
type DMARCResult struct {
	Status string `json:"status"`
	Policy string `json:"policy,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// ReverseDNSResult records whether the sending host's PTR record matched
// its HELO identity.
type ReverseDNSResult struct {
	Verified  bool   `json:"verified"`
	PTRRecord string `json:"ptrRecord,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// Status reports the check as pass, fail or none, mirroring the string
// statuses of the other checks.
func (r *ReverseDNSResult) Status() string {
	if r == nil {
		return StatusNone
	}
	if r.Verified {
		return StatusPass
	}
	return StatusFail
}

// AllPass reports whether every check that ran passed.
func (a *AuthResults) AllPass() bool {
	if a == nil {
		return false
	}
	if a.SPF != nil && !strings.EqualFold(a.SPF.Status, StatusPass) {
		return false
	}
	for _, d := range a.DKIM {
		if !strings.EqualFold(d.Status, StatusPass) {
			return false
		}
	}
	if a.DMARC != nil && !strings.EqualFold(a.DMARC.Status, StatusPass) {
		return false
	}
	return true
}
