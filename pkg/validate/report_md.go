package validate

import (
	"fmt"
	"strings"
)

// ToMarkdown renders the report as Markdown suitable for PR comments and
// documentation.
func (report *Report) ToMarkdown() string {
	var markdownBuilder strings.Builder

	statusBadge := statusToMarkdownBadge(report.Status)
	markdownBuilder.WriteString(fmt.Sprintf("# Validation Report %s\n\n", statusBadge))

	markdownBuilder.WriteString("## Summary\n\n")
	markdownBuilder.WriteString("| Metric | Value |\n")
	markdownBuilder.WriteString("|--------|-------|\n")
	markdownBuilder.WriteString(fmt.Sprintf("| **Status** | %s |\n", statusBadge))
	markdownBuilder.WriteString(fmt.Sprintf("| **Valid** | %t |\n", report.IsValid))
	if report.ProfileName != "" {
		markdownBuilder.WriteString(fmt.Sprintf("| **Profile** | %s |\n", report.ProfileName))
	}
	markdownBuilder.WriteString(fmt.Sprintf("| Pasal | %d |\n", report.Statistics.Pasal))
	markdownBuilder.WriteString(fmt.Sprintf("| Ayat | %d |\n", report.Statistics.Ayat))
	markdownBuilder.WriteString(fmt.Sprintf("| Sub-items | %d |\n", report.Statistics.SubItems))
	markdownBuilder.WriteString(fmt.Sprintf("| Generic sections | %d |\n", report.Statistics.Generic))
	markdownBuilder.WriteString(fmt.Sprintf("| Explained Pasal | %d |\n", report.Statistics.Explained))
	markdownBuilder.WriteString(fmt.Sprintf("| Reference targets | %d |\n", report.Statistics.References))
	markdownBuilder.WriteString("\n")

	writeIssueSection(&markdownBuilder, "Errors", report.Errors)
	writeIssueSection(&markdownBuilder, "Warnings", report.Warnings)
	writeIssueSection(&markdownBuilder, "Suggestions", report.Suggestions)

	return markdownBuilder.String()
}

func writeIssueSection(markdownBuilder *strings.Builder, title string, issues []ValidationIssue) {
	if len(issues) == 0 {
		return
	}
	markdownBuilder.WriteString(fmt.Sprintf("## %s\n\n", title))
	markdownBuilder.WriteString("| Check | Section | Message |\n")
	markdownBuilder.WriteString("|-------|---------|---------|\n")
	for _, issue := range issues {
		message := issue.Message
		if len(issue.Examples) > 0 {
			message += " (" + strings.Join(issue.Examples, ", ") + ")"
		}
		markdownBuilder.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			issue.Check, escapeMarkdownTableCell(issue.Section), escapeMarkdownTableCell(message)))
	}
	markdownBuilder.WriteString("\n")
}

// statusToMarkdownBadge converts a ValidationStatus to a text badge for Markdown.
func statusToMarkdownBadge(status ValidationStatus) string {
	switch status {
	case StatusPass:
		return "`PASS`"
	case StatusFail:
		return "`FAIL`"
	case StatusWarn:
		return "`WARN`"
	default:
		return fmt.Sprintf("`%s`", status)
	}
}

// escapeMarkdownTableCell escapes pipe characters in table cell content.
func escapeMarkdownTableCell(content string) string {
	return strings.ReplaceAll(content, "|", "\\|")
}
