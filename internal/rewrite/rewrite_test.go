package rewrite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmagar/mdimg/internal/model"
)

// stubUploader records every request and answers from a table keyed by base name.
type stubUploader struct {
	requests []model.UploadRequest
	urls     map[string]string
	errs     map[string]error
}

func (s *stubUploader) Upload(_ context.Context, req model.UploadRequest) (model.UploadResult, error) {
	s.requests = append(s.requests, req)
	name := filepath.Base(req.LocalPath)
	if err, ok := s.errs[name]; ok {
		return model.UploadResult{}, err
	}
	if url, ok := s.urls[name]; ok {
		return model.UploadResult{URL: url, Markdown: "![ignored](" + url + ")", DeleteURL: "https://cdn.test/del"}, nil
	}
	return model.UploadResult{}, &model.UploadError{Kind: model.KindNotFound, Path: req.LocalPath, Err: fs.ErrNotExist}
}

type captured struct {
	warnings []string
	infos    []string
	skips    []string
}

func newTestRewriter(up model.ImageUploader) (*Rewriter, *captured) {
	c := &captured{}
	r := New(up)
	r.Warn = func(msg string) { c.warnings = append(c.warnings, msg) }
	r.Info = func(msg string) { c.infos = append(c.infos, msg) }
	r.Skip = func(msg string) { c.skips = append(c.skips, msg) }
	return r, c
}

func TestFindImageReferences(t *testing.T) {
	text := "a ![one](x.png) b ![](y.jpg) ![three](https://h/z.gif)"
	refs := FindImageReferences(text)
	if len(refs) != 3 {
		t.Fatalf("refs = %d, want 3", len(refs))
	}
	want := []model.ImageReference{
		{Alt: "one", Path: "x.png", Start: 2, End: 15},
		{Alt: "", Path: "y.jpg", Start: 18, End: 28},
		{Alt: "three", Path: "https://h/z.gif", Start: 29, End: len(text)},
	}
	for i, w := range want {
		if refs[i] != w {
			t.Fatalf("ref %d = %+v, want %+v", i, refs[i], w)
		}
		if got := text[refs[i].Start:refs[i].End]; !strings.HasPrefix(got, "![") || !strings.HasSuffix(got, ")") {
			t.Fatalf("span %d = %q", i, got)
		}
	}
}

func TestFindImageReferencesLimitations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "bracket in alt", text: "![a]b](c.png)", want: nil},
		{name: "paren in path stops early", text: "![a](c(1).png)", want: []string{"c(1"}},
		{name: "plain link", text: "[a](c.png)", want: nil},
		{name: "empty path", text: "![a]()", want: []string{""}},
		{name: "adjacent", text: "![a](1.png)![b](2.png)", want: []string{"1.png", "2.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := FindImageReferences(tt.text)
			if len(refs) != len(tt.want) {
				t.Fatalf("refs = %+v, want paths %q", refs, tt.want)
			}
			for i, p := range tt.want {
				if refs[i].Path != p {
					t.Fatalf("path %d = %q, want %q", i, refs[i].Path, p)
				}
			}
		})
	}
}

func TestRewriteWithoutImagesReturnsInput(t *testing.T) {
	inputs := []string{
		"",
		"# Title\n\nJust text, a [link](x.png) and `code`.\n",
		"![broken](no-close\n",
	}
	for _, in := range inputs {
		up := &stubUploader{}
		r, c := newTestRewriter(up)
		out, outcomes := r.Rewrite(context.Background(), in, t.TempDir(), "1")
		if out != in {
			t.Fatalf("output = %q, want %q", out, in)
		}
		if len(outcomes) != 0 || len(up.requests) != 0 || len(c.warnings) != 0 {
			t.Fatalf("unexpected activity: outcomes=%v requests=%v warnings=%v", outcomes, up.requests, c.warnings)
		}
	}
}

func TestRewriteUploadsLocalImage(t *testing.T) {
	dir := t.TempDir()
	up := &stubUploader{urls: map[string]string{"cat.png": "https://cdn.test/cat.png"}}
	r, c := newTestRewriter(up)

	out, outcomes := r.Rewrite(context.Background(), "![cat](./imgs/cat.png)", dir, "42")
	if out != "![cat](https://cdn.test/cat.png)" {
		t.Fatalf("output = %q", out)
	}
	if len(up.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(up.requests))
	}
	wantPath := filepath.Join(dir, "imgs", "cat.png")
	if up.requests[0].LocalPath != wantPath {
		t.Fatalf("local path = %q, want %q", up.requests[0].LocalPath, wantPath)
	}
	if up.requests[0].AlbumID != "42" {
		t.Fatalf("album id = %q", up.requests[0].AlbumID)
	}
	if len(outcomes) != 1 || outcomes[0].Status != model.OutcomeUploaded || outcomes[0].URL != "https://cdn.test/cat.png" {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if len(c.infos) != 1 || len(c.warnings) != 0 {
		t.Fatalf("infos=%v warnings=%v", c.infos, c.warnings)
	}
}

func TestRewriteResolvesAgainstDocumentDirNotCwd(t *testing.T) {
	docDir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })

	up := &stubUploader{urls: map[string]string{"a.png": "https://cdn.test/a.png"}}
	r, _ := newTestRewriter(up)
	r.Rewrite(context.Background(), "![a](a.png)", docDir, "1")
	if got := up.requests[0].LocalPath; got != filepath.Join(docDir, "a.png") {
		t.Fatalf("local path = %q, want it under %q", got, docDir)
	}
}

func TestRewriteKeepsAbsolutePaths(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.png")
	up := &stubUploader{urls: map[string]string{"abs.png": "https://cdn.test/abs.png"}}
	r, _ := newTestRewriter(up)
	out, _ := r.Rewrite(context.Background(), fmt.Sprintf("![x](%s)", abs), t.TempDir(), "1")
	if up.requests[0].LocalPath != abs {
		t.Fatalf("local path = %q, want %q", up.requests[0].LocalPath, abs)
	}
	if out != "![x](https://cdn.test/abs.png)" {
		t.Fatalf("output = %q", out)
	}
}

func TestRewriteLeavesRemoteImagesAlone(t *testing.T) {
	up := &stubUploader{}
	r, c := newTestRewriter(up)
	in := "![dog](https://already.remote/dog.png) and ![old](http://plain.remote/x.gif)"
	out, outcomes := r.Rewrite(context.Background(), in, t.TempDir(), "1")
	if out != in {
		t.Fatalf("output = %q, want unchanged", out)
	}
	if len(up.requests) != 0 {
		t.Fatalf("uploader called %d times for remote images", len(up.requests))
	}
	for _, o := range outcomes {
		if o.Status != model.OutcomeRemote {
			t.Fatalf("status = %s, want remote", o.Status)
		}
	}
	if len(c.warnings) != 0 {
		t.Fatalf("warnings = %v", c.warnings)
	}
}

func TestRewriteFailuresPreserveOriginalText(t *testing.T) {
	failures := map[string]error{
		"missing.png":   &model.UploadError{Kind: model.KindNotFound, Path: "missing.png", Err: fs.ErrNotExist},
		"transport.png": &model.UploadError{Kind: model.KindTransport, Path: "transport.png", Err: errors.New("connection refused")},
		"rejected.png":  &model.UploadError{Kind: model.KindApplication, Path: "rejected.png", Message: "album not found"},
	}
	for name, upErr := range failures {
		t.Run(name, func(t *testing.T) {
			up := &stubUploader{errs: map[string]error{name: upErr}}
			r, c := newTestRewriter(up)
			in := fmt.Sprintf("before ![alt text](imgs/%s) after", name)
			out, outcomes := r.Rewrite(context.Background(), in, t.TempDir(), "1")
			if out != in {
				t.Fatalf("output = %q, want %q", out, in)
			}
			if len(c.warnings) != 1 {
				t.Fatalf("warnings = %d, want 1", len(c.warnings))
			}
			if !strings.Contains(c.warnings[0], "imgs/"+name) || !strings.Contains(c.warnings[0], upErr.Error()) {
				t.Fatalf("warning %q does not mention path and error", c.warnings[0])
			}
			if len(outcomes) != 1 || outcomes[0].Status != model.OutcomeFailed {
				t.Fatalf("outcomes = %+v", outcomes)
			}
			if kind, ok := model.UploadErrorKindOf(outcomes[0].Err); !ok || kind != upErr.(*model.UploadError).Kind {
				t.Fatalf("outcome error kind = %v (%v)", kind, ok)
			}
		})
	}
}

func TestRewriteMixedDocumentUsesOriginalSpans(t *testing.T) {
	up := &stubUploader{urls: map[string]string{
		"a.png": "https://cdn.test/a-very-long-hosted-url-that-shifts-offsets.png",
		"c.png": "https://cdn.test/c.png",
	}}
	r, c := newTestRewriter(up)
	in := "# Post\n\n![A](a.png)\n\n![B](b.png)\n\ntext ![](https://x.test/r.png) ![C](./c.png)\n"
	want := "# Post\n\n![A](https://cdn.test/a-very-long-hosted-url-that-shifts-offsets.png)\n\n![B](b.png)\n\ntext ![](https://x.test/r.png) ![C](https://cdn.test/c.png)\n"

	out, outcomes := r.Rewrite(context.Background(), in, t.TempDir(), "9")
	if out != want {
		t.Fatalf("output =\n%s\nwant\n%s", out, want)
	}
	gotOrder := make([]string, 0, len(up.requests))
	for _, req := range up.requests {
		gotOrder = append(gotOrder, filepath.Base(req.LocalPath))
	}
	if strings.Join(gotOrder, ",") != "a.png,b.png,c.png" {
		t.Fatalf("upload order = %v", gotOrder)
	}
	statuses := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		statuses = append(statuses, o.Status.String())
	}
	if strings.Join(statuses, ",") != "uploaded,failed,remote,uploaded" {
		t.Fatalf("statuses = %v", statuses)
	}
	if len(c.warnings) != 1 || len(c.infos) != 2 {
		t.Fatalf("warnings=%d infos=%d", len(c.warnings), len(c.infos))
	}
}

func TestRewritePreservesAltTextBytes(t *testing.T) {
	alt := "猫 (cat) — *emphasis* & <b>"
	up := &stubUploader{urls: map[string]string{"cat.png": "https://cdn.test/cat.png"}}
	r, _ := newTestRewriter(up)
	out, _ := r.Rewrite(context.Background(), "!["+alt+"](cat.png)", t.TempDir(), "1")
	if out != "!["+alt+"](https://cdn.test/cat.png)" {
		t.Fatalf("output = %q", out)
	}
}

func TestRewriteUploadsRepeatedReferencesEachTime(t *testing.T) {
	up := &stubUploader{urls: map[string]string{"a.png": "https://cdn.test/a.png"}}
	r, _ := newTestRewriter(up)
	out, _ := r.Rewrite(context.Background(), "![1](a.png) ![2](a.png)", t.TempDir(), "1")
	if out != "![1](https://cdn.test/a.png) ![2](https://cdn.test/a.png)" {
		t.Fatalf("output = %q", out)
	}
	if len(up.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(up.requests))
	}
}

func TestRewriteSkipCode(t *testing.T) {
	in := "![real](a.png)\n\n```md\n![fenced](a.png)\n```\n\n    ![indented](a.png)\n\nInline `![span](a.png)` here.\n"
	up := &stubUploader{urls: map[string]string{"a.png": "https://cdn.test/a.png"}}

	r, c := newTestRewriter(up)
	r.SkipCode = true
	out, outcomes := r.Rewrite(context.Background(), in, t.TempDir(), "1")

	want := strings.Replace(in, "![real](a.png)", "![real](https://cdn.test/a.png)", 1)
	if out != want {
		t.Fatalf("output =\n%s\nwant\n%s", out, want)
	}
	if len(up.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(up.requests))
	}
	skipped := 0
	for _, o := range outcomes {
		if o.Status == model.OutcomeSkippedCode {
			skipped++
		}
	}
	if skipped != 3 {
		t.Fatalf("skipped = %d, want 3 (outcomes %+v)", skipped, outcomes)
	}
	if len(c.skips) != 3 || len(c.warnings) != 0 {
		t.Fatalf("skip lines = %v, warnings = %v", c.skips, c.warnings)
	}
}

func TestRewriteWithoutSkipCodeUploadsInsideCode(t *testing.T) {
	in := "```\n![fenced](a.png)\n```\n"
	up := &stubUploader{urls: map[string]string{"a.png": "https://cdn.test/a.png"}}
	r, _ := newTestRewriter(up)
	out, _ := r.Rewrite(context.Background(), in, t.TempDir(), "1")
	if out != "```\n![fenced](https://cdn.test/a.png)\n```\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestCodeRegionsContains(t *testing.T) {
	c := codeRegions{{start: 2, stop: 5}, {start: 10, stop: 12}}
	cases := map[int]bool{0: false, 2: true, 4: true, 5: false, 9: false, 10: true, 11: true, 12: false, 100: false}
	for offset, want := range cases {
		if got := c.contains(offset); got != want {
			t.Fatalf("contains(%d) = %v, want %v", offset, got, want)
		}
	}
}
