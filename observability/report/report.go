// Package report renders a batch of audit records as an HTML page,
// for a human to skim after a run rather than grep a log file.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/russross/blackfriday/v2"

	"github.com/ros2go/actionlib/actionmsgs"
	"github.com/ros2go/actionlib/audit"
)

// Render builds a Markdown table of records, sorted by finish time,
// and returns it converted to HTML.
func Render(title string, records []audit.Record) []byte {
	sorted := append([]audit.Record(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FinishedAt.Before(sorted[j].FinishedAt) })

	var md bytes.Buffer
	fmt.Fprintf(&md, "# %s\n\n", title)
	fmt.Fprintf(&md, "%d goal(s) recorded.\n\n", len(sorted))
	md.WriteString("| Goal ID | Action | Submitted | Finished | Outcome |\n")
	md.WriteString("|---|---|---|---|---|\n")
	for _, r := range sorted {
		fmt.Fprintf(&md, "| %s | %s | %s | %s | %s |\n",
			r.GoalID, r.Action,
			r.SubmittedAt.Format(time.RFC3339),
			r.FinishedAt.Format(time.RFC3339),
			outcome(r),
		)
	}

	return blackfriday.Run(md.Bytes())
}

func outcome(r audit.Record) string {
	state := actionmsgs.TerminalStateEnum(r.TerminalCode)
	if r.TerminalText == "" {
		return state.String()
	}
	return fmt.Sprintf("%s (%s)", state, r.TerminalText)
}
