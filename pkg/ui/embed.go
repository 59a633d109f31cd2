// Package ui holds the embedded HTML templates for the share page and the
// report emails.
//
// The files are html/template sources; callers parse them once at startup
// so every value rendered into them is escaped for its context.
package ui

import (
	_ "embed"
	"html/template"
)

// ShareHTML is the public share page with an OpenGraph preview and a
// redirect to the shared video.
//
//go:embed share.html
var ShareHTML string

// DigestHTML is the scheduled report email: category counts and the top clips.
//
//go:embed digest.html
var DigestHTML string

// ScrollReportHTML is the on-demand report email with themes and deep dives.
//
//go:embed scroll_report.html
var ScrollReportHTML string

// Templates parsed from the embedded sources.
var (
	ShareTemplate        = template.Must(template.New("share").Parse(ShareHTML))
	DigestTemplate       = template.Must(template.New("digest").Parse(DigestHTML))
	ScrollReportTemplate = template.Must(template.New("scroll_report").Parse(ScrollReportHTML))
)
