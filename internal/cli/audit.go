package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	vaultsandbox "github.com/vaultsandbox/client-go"
	"github.com/vaultsandbox/client-go/authresults"
	"github.com/vaultsandbox/client-go/internal/security"
	"github.com/vaultsandbox/client-go/internal/styles"
)

var auditCmd = &cobra.Command{
	Use:   "audit [email-id]",
	Short: "Deep-dive security analysis of an email",
	Long: `Analyze an email's authentication results and structure.

Displays SPF, DKIM, DMARC and reverse-DNS verdicts, the spam analysis
and the MIME structure, plus an aggregate security score.

Examples:
  vsb email audit              # Audit most recent email
  vsb email audit abc123       # Audit specific email
  vsb email audit -o json      # JSON output for scripting`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	emailCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	inbox, cleanup, err := openInbox(ctx, emailInboxFlag)
	if err != nil {
		return err
	}
	defer cleanup()

	email, err := fetchEmail(ctx, inbox, getArg(args, 0, ""))
	if err != nil {
		return err
	}

	if getOutput(cmd) == "json" {
		return outputJSON(auditJSON(email))
	}
	renderAuditReport(email)
	return nil
}

func renderAuditReport(email *vaultsandbox.Email) {
	label := styles.LabelStyle

	fmt.Println()
	fmt.Println(styles.TitleStyle.Render(" EMAIL AUDIT REPORT "))
	fmt.Println()

	fmt.Println(styles.SectionStyle.Render("BASIC INFO"))
	fmt.Printf("%s %s\n", label.Render("Subject:"), email.Subject)
	fmt.Printf("%s %s\n", label.Render("From:"), email.From)
	fmt.Printf("%s %s\n", label.Render("To:"), strings.Join(email.To, ", "))
	fmt.Printf("%s %s\n", label.Render("Received:"), email.ReceivedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Println()
	fmt.Println(styles.SectionStyle.Render("AUTHENTICATION"))
	renderAuthResults(email.AuthResults)

	if email.SpamAnalysis != nil {
		fmt.Println()
		fmt.Println(styles.SectionStyle.Render("SPAM ANALYSIS"))
		verdict := email.SpamAnalysis.Verdict
		if email.SpamAnalysis.IsSpam() {
			verdict = styles.FailStyle.Render(strings.ToUpper(verdict))
		} else {
			verdict = styles.PassStyle.Render(strings.ToUpper(verdict))
		}
		fmt.Printf("%s %s (score %.1f)\n", label.Render("Verdict:"), verdict, email.SpamAnalysis.Score)
		for _, rule := range email.SpamAnalysis.Rules {
			fmt.Printf("%s %s (%.1f)\n", label.Render(""), rule.Name, rule.Score)
		}
	}

	fmt.Println()
	fmt.Println(styles.SectionStyle.Render("MIME STRUCTURE"))
	fmt.Println(styles.BoxStyle.Render(buildMIMETree(email)))

	fmt.Println()
	score := security.CalculateScore(email)
	summary := fmt.Sprintf("Security Score: %s",
		styles.ScoreStyle(score).Render(fmt.Sprintf("%d/100", score)))
	fmt.Println(styles.BoxStyle.Render(summary))
	fmt.Println()
}

func renderAuthResults(auth *authresults.AuthResults) {
	label := styles.LabelStyle
	if auth == nil {
		fmt.Printf("%s %s\n", label.Render("Checks:"), styles.WarnStyle.Render("(none recorded)"))
		return
	}

	if auth.SPF != nil {
		fmt.Printf("%s %s %s\n", label.Render("SPF:"),
			styles.FormatAuthResult(auth.SPF.Status), styles.MutedStyle.Render(auth.SPF.Domain))
	}
	for _, dkim := range auth.DKIM {
		detail := dkim.Domain
		if dkim.Selector != "" {
			detail += " (" + dkim.Selector + ")"
		}
		fmt.Printf("%s %s %s\n", label.Render("DKIM:"),
			styles.FormatAuthResult(dkim.Status), styles.MutedStyle.Render(detail))
	}
	if auth.DMARC != nil {
		detail := auth.DMARC.Domain
		if auth.DMARC.Policy != "" {
			detail += " policy=" + auth.DMARC.Policy
		}
		fmt.Printf("%s %s %s\n", label.Render("DMARC:"),
			styles.FormatAuthResult(auth.DMARC.Status), styles.MutedStyle.Render(detail))
	}
	fmt.Printf("%s %s %s\n", label.Render("rDNS:"),
		styles.FormatAuthResult(auth.ReverseDNS.Status()),
		styles.MutedStyle.Render(auth.ReverseDNS.Status()))
}

func buildMIMETree(email *vaultsandbox.Email) string {
	var sb strings.Builder

	sb.WriteString("message/rfc822\n")
	sb.WriteString("├── headers\n")
	headerKeys := []string{"From", "To", "Subject", "Date", "Message-ID"}
	for i, key := range headerKeys {
		prefix := "│   ├── "
		if i == len(headerKeys)-1 && email.Text == "" && email.HTML == "" {
			prefix = "│   └── "
		}
		sb.WriteString(prefix + key + "\n")
	}

	hasText := email.Text != ""
	hasHTML := email.HTML != ""
	if hasText || hasHTML {
		sb.WriteString("├── body\n")
		switch {
		case hasText && hasHTML:
			sb.WriteString("│   ├── text/plain\n")
			sb.WriteString("│   └── text/html\n")
		case hasText:
			sb.WriteString("│   └── text/plain\n")
		default:
			sb.WriteString("│   └── text/html\n")
		}
	}

	if len(email.Attachments) > 0 {
		sb.WriteString("└── attachments\n")
		for i, att := range email.Attachments {
			prefix := "    ├── "
			if i == len(email.Attachments)-1 {
				prefix = "    └── "
			}
			sb.WriteString(fmt.Sprintf("%s%s (%s, %d bytes)\n",
				prefix, att.Filename, att.ContentType, att.Size))
		}
	}

	return sb.String()
}

func auditJSON(email *vaultsandbox.Email) map[string]any {
	data := map[string]any{
		"id":            email.ID,
		"subject":       email.Subject,
		"from":          email.From,
		"to":            email.To,
		"receivedAt":    email.ReceivedAt,
		"securityScore": security.CalculateScore(email),
	}

	if auth := email.AuthResults; auth != nil {
		authData := map[string]any{
			"reverseDns": auth.ReverseDNS.Status(),
			"allPass":    auth.AllPass(),
		}
		if auth.SPF != nil {
			authData["spf"] = map[string]string{
				"status": auth.SPF.Status,
				"domain": auth.SPF.Domain,
			}
		}
		if len(auth.DKIM) > 0 {
			authData["dkim"] = map[string]string{
				"status":   auth.DKIM[0].Status,
				"selector": auth.DKIM[0].Selector,
				"domain":   auth.DKIM[0].Domain,
			}
		}
		if auth.DMARC != nil {
			authData["dmarc"] = map[string]string{
				"status": auth.DMARC.Status,
				"policy": auth.DMARC.Policy,
			}
		}
		data["authResults"] = authData
	}

	if email.SpamAnalysis != nil {
		data["spamAnalysis"] = map[string]any{
			"score":   email.SpamAnalysis.Score,
			"verdict": email.SpamAnalysis.Verdict,
			"isSpam":  email.SpamAnalysis.IsSpam(),
		}
	}
	return data
}
