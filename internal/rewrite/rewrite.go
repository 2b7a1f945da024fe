// Package rewrite replaces local image references in a Markdown document with
// hosted URLs. Per-image failures are reported, never returned: the rewritten
// text is always produced.
package rewrite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jmagar/mdimg/internal/model"
	"github.com/jmagar/mdimg/internal/ui"
)

// imagePattern matches `![alt](path)`. Alt text cannot contain `]` and the
// path cannot contain `)`; such references are left alone.
var imagePattern = regexp.MustCompile(`!\[([^\]]*?)\]\(([^)]*?)\)`)

// FindImageReferences returns every non-overlapping image reference in text,
// left to right.
func FindImageReferences(text string) []model.ImageReference {
	matches := imagePattern.FindAllStringSubmatchIndex(text, -1)
	refs := make([]model.ImageReference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, model.ImageReference{
			Alt:   text[m[2]:m[3]],
			Path:  text[m[4]:m[5]],
			Start: m[0],
			End:   m[1],
		})
	}
	return refs
}

// IsRemote reports whether path already points at an http(s) URL.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// ResolvePath resolves an image path against the directory holding the
// document, not the working directory.
func ResolvePath(sourceDir, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(sourceDir, path)
	}
	return filepath.Abs(path)
}

// Rewriter uploads the local images of a document one at a time.
type Rewriter struct {
	Uploader model.ImageUploader
	// SkipCode leaves references inside code blocks and code spans untouched.
	SkipCode bool

	// Warn and Info receive one line per failed and per uploaded image,
	// Skip one per reference left alone inside code.
	// They default to ui.PrintWarning, ui.PrintUpload and ui.PrintSkip.
	Warn func(msg string)
	Info func(msg string)
	Skip func(msg string)
}

// New returns a Rewriter that uploads through up.
func New(up model.ImageUploader) *Rewriter {
	return &Rewriter{Uploader: up}
}

// Rewrite returns text with every successfully uploaded local image replaced
// by its hosted URL, plus one outcome per reference in document order.
// All replacements are computed against the spans of the original text.
func (r *Rewriter) Rewrite(ctx context.Context, text, sourceDir, albumID string) (string, []model.ImageOutcome) {
	refs := FindImageReferences(text)
	if len(refs) == 0 {
		return text, nil
	}

	var code codeRegions
	if r.SkipCode {
		code = findCodeRegions([]byte(text))
	}

	outcomes := make([]model.ImageOutcome, 0, len(refs))
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, ref := range refs {
		b.WriteString(text[last:ref.Start])
		last = ref.End

		outcome := r.rewriteOne(ctx, ref, sourceDir, albumID, code)
		outcomes = append(outcomes, outcome)
		if outcome.Status == model.OutcomeUploaded {
			fmt.Fprintf(&b, "![%s](%s)", ref.Alt, outcome.URL)
		} else {
			b.WriteString(text[ref.Start:ref.End])
		}
	}
	b.WriteString(text[last:])
	return b.String(), outcomes
}

func (r *Rewriter) rewriteOne(ctx context.Context, ref model.ImageReference, sourceDir, albumID string, code codeRegions) model.ImageOutcome {
	outcome := model.ImageOutcome{Ref: ref}
	if IsRemote(ref.Path) {
		outcome.Status = model.OutcomeRemote
		outcome.URL = ref.Path
		return outcome
	}
	if code.contains(ref.Start) {
		outcome.Status = model.OutcomeSkippedCode
		r.skip(fmt.Sprintf("Image %s is inside code, left as is", ref.Path))
		return outcome
	}

	fullPath, err := ResolvePath(sourceDir, ref.Path)
	if err == nil {
		var res model.UploadResult
		res, err = r.Uploader.Upload(ctx, model.UploadRequest{LocalPath: fullPath, AlbumID: albumID})
		if err == nil {
			outcome.Status = model.OutcomeUploaded
			outcome.URL = res.URL
			r.info(fmt.Sprintf("Image %s uploaded (%s) %s %s", ref.Path, localSize(fullPath), ui.SymbolArrow, res.URL))
			return outcome
		}
	}

	outcome.Status = model.OutcomeFailed
	outcome.Err = err
	r.warn(fmt.Sprintf("Image %s upload failed: %v", ref.Path, err))
	return outcome
}

func localSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ui.DescribeSize(-1)
	}
	return ui.DescribeSize(info.Size())
}

func (r *Rewriter) warn(msg string) {
	if r.Warn != nil {
		r.Warn(msg)
		return
	}
	ui.PrintWarning(msg)
}

func (r *Rewriter) info(msg string) {
	if r.Info != nil {
		r.Info(msg)
		return
	}
	ui.PrintUpload(msg)
}

func (r *Rewriter) skip(msg string) {
	if r.Skip != nil {
		r.Skip(msg)
		return
	}
	ui.PrintSkip(msg)
}
