package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/feedlog/internal/diagnostics"
)

// DoctorReport renders one line per check, with a hint under failures.
func DoctorReport(r diagnostics.Report) string {
	var b strings.Builder
	b.WriteString(Header("Diagnostics"))
	b.WriteString("\n")
	for _, res := range r.Results {
		var mark string
		switch res.Status {
		case diagnostics.Pass:
			mark = StyleGreen.Render("✔")
		case diagnostics.Fail:
			mark = StyleRed.Render("✖")
		default:
			mark = StyleDim.Render("–")
		}
		fmt.Fprintf(&b, "%s %-24s %s %s\n", mark, res.Name, res.Detail,
			Dim(fmt.Sprintf("(%s)", res.Elapsed.Round(time.Millisecond))))
		if res.Status == diagnostics.Fail && res.Hint != "" {
			fmt.Fprintf(&b, "  %s %s\n", StyleYellow.Render("→"), res.Hint)
		}
	}
	if r.OK() {
		b.WriteString(StyleGreen.Render("All checks passed."))
	} else {
		b.WriteString(StyleRed.Render(fmt.Sprintf("%d check(s) failed.", len(r.Failed()))))
	}
	return b.String()
}
