package ui

import (
	"bytes"
	"strings"
	"testing"
)

// TestShareHTMLEmbedded verifies the share page is embedded and escapes its inputs.
func TestShareHTMLEmbedded(t *testing.T) {
	if len(ShareHTML) == 0 {
		t.Fatal("ShareHTML should not be empty")
	}
	if !strings.HasPrefix(ShareHTML, "<!doctype html>") {
		t.Error("ShareHTML should start with doctype declaration")
	}

	var buf bytes.Buffer
	err := ShareTemplate.Execute(&buf, map[string]string{
		"Title":        "Saved with ScrollMiner",
		"Description":  "Saved with ScrollMiner • <b>hi</b>",
		"CanonicalURL": "https://valueminer.org/s?u=x",
		"Image":        "https://i.ytimg.com/vi/x/hq.jpg",
		"TargetURL":    "https://youtube.com/shorts/abc\"><script>",
		"PreviewTitle": "",
		"HomeURL":      "https://valueminer.org",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "<b>hi</b>") {
		t.Error("description should be escaped")
	}
	if strings.Contains(out, `abc"><script>`) {
		t.Error("target URL should be escaped")
	}
	if !strings.Contains(out, `property="og:image"`) {
		t.Error("og:image should be rendered when an image is present")
	}
	if !strings.Contains(out, "window.location.replace(") {
		t.Error("share page should redirect with a script")
	}
	if !strings.Contains(out, "Opening your clip") {
		t.Error("share page should fall back to the default title")
	}
}

// TestShareHTMLNoImage verifies image tags are omitted without a preview image.
func TestShareHTMLNoImage(t *testing.T) {
	var buf bytes.Buffer
	err := ShareTemplate.Execute(&buf, map[string]string{
		"Title":     "Saved with ScrollMiner",
		"TargetURL": "https://youtube.com/shorts/abc",
		"HomeURL":   "https://valueminer.org",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(buf.String(), "og:image") {
		t.Error("og:image should be omitted")
	}
}

// TestDigestHTMLEmpty verifies the empty-period fallbacks.
func TestDigestHTMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := DigestTemplate.Execute(&buf, map[string]any{"Label": "Daily", "Email": "a@b.c"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Daily summary for a@b.c", "<li>No clips this period.</li>", "No clips mined in this period."} {
		if !strings.Contains(out, want) {
			t.Errorf("digest should contain %q", want)
		}
	}
}

// TestScrollReportHTMLEmpty verifies the empty-period fallbacks.
func TestScrollReportHTMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := ScrollReportTemplate.Execute(&buf, map[string]any{"Label": "Weekly", "Email": "a@b.c", "Hook": "hook"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Weekly summary for a@b.c") {
		t.Error("scroll report should contain the period label")
	}
	if strings.Count(out, "No clips mined this period.") != 2 {
		t.Error("scroll report should show the empty message for deep dives and the standout clip")
	}
}
