package watch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vaultsandbox/client-go/internal/security"
	"github.com/vaultsandbox/client-go/internal/styles"
)

var (
	detailLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Width(10)
	detailValueStyle   = lipgloss.NewStyle().Foreground(styles.White)
	detailSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.White).MarginTop(1)
)

func (m Model) renderTab() string {
	switch m.tab {
	case TabSecurity:
		return m.renderSecurityTab()
	case TabLinks:
		return m.renderLinksTab()
	case TabRaw:
		return m.renderRawTab()
	default:
		return m.renderContentTab()
	}
}

func (m Model) renderTabBar() string {
	tabs := []string{"Content", "Security", "Links", "Raw"}
	rendered := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := fmt.Sprintf("%d %s", i+1, tab)
		if DetailTab(i) == m.tab {
			rendered = append(rendered, styles.TabActiveStyle.Render(label))
		} else {
			rendered = append(rendered, styles.TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderContentTab() string {
	if m.viewedEmail == nil {
		return ""
	}
	email := m.viewedEmail.Email
	var sb strings.Builder

	sb.WriteString(m.renderTabBar())
	sb.WriteString("\n\n")

	writeField := func(label, value string) {
		sb.WriteString(detailLabelStyle.Render(label))
		sb.WriteString(detailValueStyle.Render(value))
		sb.WriteString("\n")
	}

	writeField("From:", email.From)
	writeField("To:", strings.Join(email.To, ", "))
	writeField("Date:", email.ReceivedAt.Format("2006-01-02 15:04:05"))
	subject := email.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	writeField("Subject:", subject)
	if len(email.Links) > 0 {
		writeField("Links:", fmt.Sprintf("%d found", len(email.Links)))
	}
	if len(email.Attachments) > 0 {
		writeField("Attach:", fmt.Sprintf("%d files", len(email.Attachments)))
	}

	sb.WriteString("\n")
	sb.WriteString(styles.HelpStyle.Render(strings.Repeat("─", 60)))
	sb.WriteString("\n\n")

	body := email.Text
	if body == "" {
		body = "(no text content)"
	}
	sb.WriteString(body)

	return sb.String()
}

func (m Model) renderSecurityTab() string {
	if m.viewedEmail == nil {
		return ""
	}
	email := m.viewedEmail.Email
	var sb strings.Builder

	label := lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Width(14)

	sb.WriteString(m.renderTabBar())
	sb.WriteString("\n\n")

	sb.WriteString(detailSectionStyle.Render("AUTHENTICATION"))
	sb.WriteString("\n")

	if auth := email.AuthResults; auth != nil {
		if auth.SPF != nil {
			sb.WriteString(fmt.Sprintf("%s %s", label.Render("SPF:"), styles.FormatAuthResult(auth.SPF.Status)))
			if auth.SPF.Domain != "" {
				sb.WriteString(" (" + auth.SPF.Domain + ")")
			}
			sb.WriteString("\n")
		}
		if len(auth.DKIM) > 0 {
			dkim := auth.DKIM[0]
			sb.WriteString(fmt.Sprintf("%s %s", label.Render("DKIM:"), styles.FormatAuthResult(dkim.Status)))
			if dkim.Domain != "" {
				sb.WriteString(" (" + dkim.Domain + ")")
			}
			sb.WriteString("\n")
		}
		if auth.DMARC != nil {
			sb.WriteString(fmt.Sprintf("%s %s", label.Render("DMARC:"), styles.FormatAuthResult(auth.DMARC.Status)))
			if auth.DMARC.Policy != "" {
				sb.WriteString(" (policy: " + auth.DMARC.Policy + ")")
			}
			sb.WriteString("\n")
		}
		if auth.ReverseDNS != nil {
			sb.WriteString(fmt.Sprintf("%s %s", label.Render("Reverse DNS:"), styles.FormatAuthResult(auth.ReverseDNS.Status())))
			if auth.ReverseDNS.PTRRecord != "" {
				sb.WriteString(" (" + auth.ReverseDNS.PTRRecord + ")")
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString(styles.WarnStyle.Render("No authentication results available"))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(detailSectionStyle.Render("TRANSPORT SECURITY"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s %s\n", label.Render("TLS:"), styles.PassStyle.Render("TLS 1.3")))
	sb.WriteString(fmt.Sprintf("%s %s\n", label.Render("E2E:"), styles.PassStyle.Render("ML-KEM-768 + AES-256-GCM")))

	sb.WriteString("\n")
	sb.WriteString(detailSectionStyle.Render("SECURITY SCORE"))
	sb.WriteString("\n")
	score := security.CalculateScore(email)
	sb.WriteString(styles.ScoreStyle(score).Render(fmt.Sprintf("%d/100", score)))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderLinksTab() string {
	if m.viewedEmail == nil {
		return ""
	}
	email := m.viewedEmail.Email
	var sb strings.Builder

	indexStyle := lipgloss.NewStyle().Foreground(styles.Gray)

	sb.WriteString(m.renderTabBar())
	sb.WriteString("\n\n")

	if len(email.Links) == 0 {
		sb.WriteString(styles.HelpStyle.Render("No links found in this email"))
		return sb.String()
	}

	sb.WriteString(detailLabelStyle.Width(0).Render(fmt.Sprintf("Found %d links:", len(email.Links))))
	sb.WriteString("\n\n")
	for i, link := range email.Links {
		sb.WriteString(indexStyle.Render(fmt.Sprintf("%2d. ", i+1)))
		sb.WriteString(detailValueStyle.Render(link))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderRawTab() string {
	if m.viewedEmail == nil {
		return ""
	}
	email := m.viewedEmail.Email
	var sb strings.Builder

	keyStyle := lipgloss.NewStyle().Foreground(styles.Gray)

	sb.WriteString(m.renderTabBar())
	sb.WriteString("\n\n")

	sb.WriteString(detailSectionStyle.Render("HEADERS"))
	sb.WriteString("\n")
	if len(email.Headers) > 0 {
		keys := make([]string, 0, len(email.Headers))
		for k := range email.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(keyStyle.Render(k + ": "))
			sb.WriteString(detailValueStyle.Render(email.Headers[k]))
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString(styles.HelpStyle.Render("No headers available"))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(detailSectionStyle.Render("TEXT BODY"))
	sb.WriteString("\n")
	if email.Text != "" {
		sb.WriteString(email.Text)
	} else {
		sb.WriteString(styles.HelpStyle.Render("No text body available"))
	}

	sb.WriteString("\n\n")
	sb.WriteString(detailSectionStyle.Render("HTML BODY"))
	sb.WriteString("\n")
	if email.HTML != "" {
		html := email.HTML
		if len(html) > 500 {
			html = html[:500] + fmt.Sprintf("\n... (%d more bytes)", len(email.HTML)-500)
		}
		sb.WriteString(styles.HelpStyle.Render(html))
	} else {
		sb.WriteString(styles.HelpStyle.Render("No HTML body available"))
	}

	return sb.String()
}
