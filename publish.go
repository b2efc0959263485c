package main

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// IndexEntry is one solved problem's line item on the landing page.
type IndexEntry struct {
	ProblemName    string
	Status         string
	SolutionPath   string
	ProcessingTime time.Duration
}

// SolutionRepoPath builds the repo path for a published solution. The
// stem is derived from the item's full path inside the upload folder,
// not just its base name, so same-named problems in different
// subfolders publish to distinct paths; the timestamp keeps successive
// solutions of a re-uploaded problem distinguishable in history.
func SolutionRepoPath(cfg Config, item WorkItem, at time.Time) string {
	rel := strings.TrimPrefix(item.Path, cfg.UploadFolder+"/")
	stem := strings.TrimSuffix(rel, path.Ext(rel))
	stem = strings.ReplaceAll(stem, "/", "_")
	name := fmt.Sprintf("solution_%s_%s.md", stem, at.Format("20060102_150405"))
	return cfg.SolutionsFolder + "/" + name
}

// FormatSolutionDocument renders the publish payload for one solved
// (or failed-to-solve) problem.
func FormatSolutionDocument(res *SolutionResult) string {
	var b strings.Builder

	b.WriteString("# Mathematical Problem Solution\n\n")
	b.WriteString("## Original Problem\n```\n")
	b.WriteString(strings.TrimSpace(res.OriginalText))
	b.WriteString("\n```\n\n")
	fmt.Fprintf(&b, "## Problem Type\n%s\n\n", res.Category)

	b.WriteString("## Solution\n")
	if res.Solution != "" {
		b.WriteString(res.Solution)
	} else {
		b.WriteString("No solution available")
	}
	b.WriteString("\n\n## Solution Steps\n")
	if len(res.Steps) > 0 {
		for i, step := range res.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	} else {
		b.WriteString("No detailed steps available.\n")
	}

	b.WriteString("\n## Processing Information\n")
	fmt.Fprintf(&b, "- **Processing Time**: %.2fs\n", res.Elapsed.Seconds())
	fmt.Fprintf(&b, "- **Timestamp**: %s\n", res.CompletedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **File Name**: %s\n", res.FileName)
	if res.Success {
		b.WriteString("- **Success**: yes\n")
	} else {
		b.WriteString("- **Success**: no\n")
	}

	if res.ErrorMessage != "" {
		fmt.Fprintf(&b, "\n## Error Information\n%s\n", res.ErrorMessage)
	}

	b.WriteString("\n---\n*Generated by the automated math solver*\n")
	return b.String()
}

const recentSolutionsHeading = "## Recent Solutions"

const noSolutionsPlaceholder = "*No solutions yet. Upload a mathematical problem to get started!*"

var lastUpdatedPattern = regexp.MustCompile(`\*Last updated:.*?\*`)

func initialIndexPage() string {
	return fmt.Sprintf(`# Automated Math Solver

This repository is monitored by an automated mathematical problem
solving system: new problems are validated, classified, solved, and
published here with timestamps.

%s

%s

---
*Last updated: %s*
`, recentSolutionsHeading, noSolutionsPlaceholder, time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
}

// addSolutionToIndexPage inserts an entry under the Recent Solutions
// heading, creating the section when the page lacks one, and refreshes
// the last-updated stamp.
func addSolutionToIndexPage(content string, entry IndexEntry) string {
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 UTC")

	solutionEntry := fmt.Sprintf(`
### %s
- **Solved**: %s
- **Status**: %s
- **Solution**: [View Solution](%s)
- **Processing Time**: %.2fs

`, entry.ProblemName, timestamp, entry.Status, entry.SolutionPath, entry.ProcessingTime.Seconds())

	var updated string
	if idx := strings.Index(content, recentSolutionsHeading); idx >= 0 {
		head := content[:idx+len(recentSolutionsHeading)] + "\n"
		rest := strings.Replace(content[idx+len(recentSolutionsHeading):], noSolutionsPlaceholder, "", 1)
		updated = head + solutionEntry + rest
	} else {
		updated = content + "\n" + recentSolutionsHeading + "\n" + solutionEntry
	}

	if lastUpdatedPattern.MatchString(updated) {
		updated = lastUpdatedPattern.ReplaceAllString(updated, fmt.Sprintf("*Last updated: %s*", timestamp))
	} else {
		updated += fmt.Sprintf("\n---\n*Last updated: %s*\n", timestamp)
	}
	return updated
}

// solutionNotificationBodies builds the plain and HTML notification
// bodies for a delivered solution.
func solutionNotificationBodies(res *SolutionResult, solutionPath string) (subject, textBody, htmlBody string) {
	subject = fmt.Sprintf("Math problem solved: %s", res.FileName)

	var text strings.Builder
	fmt.Fprintf(&text, "Problem %s was solved automatically.\n\n", res.FileName)
	fmt.Fprintf(&text, "Category: %s\n", res.Category)
	fmt.Fprintf(&text, "Solution: %s\n", res.Solution)
	fmt.Fprintf(&text, "Published at: %s\n", solutionPath)
	fmt.Fprintf(&text, "Processing time: %.2fs\n", res.Elapsed.Seconds())

	var html strings.Builder
	fmt.Fprintf(&html, "<h2>Problem %s was solved automatically</h2>", res.FileName)
	fmt.Fprintf(&html, "<p><b>Category:</b> %s</p>", res.Category)
	fmt.Fprintf(&html, "<p><b>Solution:</b> %s</p>", res.Solution)
	fmt.Fprintf(&html, "<p><b>Published at:</b> %s</p>", solutionPath)
	fmt.Fprintf(&html, "<p><b>Processing time:</b> %.2fs</p>", res.Elapsed.Seconds())

	return subject, text.String(), html.String()
}

// failureNotificationBodies builds the notification for a failed item,
// sent only when notify_on_failure is enabled.
func failureNotificationBodies(item WorkItem, reason string) (subject, textBody string) {
	subject = fmt.Sprintf("Math problem failed: %s", item.Name)
	textBody = fmt.Sprintf("Problem %s could not be processed.\n\nReason: %s\n", item.Name, reason)
	return subject, textBody
}
