package model

import "encoding/json"

// Config holds the resolved settings for one run.
type Config struct {
	Endpoint       string `json:"endpoint"`
	Token          string `json:"token"`
	Permission     string `json:"permission,omitempty"`
	StrategyID     string `json:"strategyId,omitempty"`
	Suffix         string `json:"suffix,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
	LogFile        string `json:"logFile,omitempty"`
	SkipCode       bool   `json:"skipCode,omitempty"`

	// Per-run values, never read from or written to the config file.
	DocPath   string `json:"-"`
	AlbumID   string `json:"-"`
	ImagePath string `json:"-"`
}

// ArgsDescriptionFunc is set by package main to provide colored help text.
// If nil, Description() returns an empty string (go-arg will use default help).
var ArgsDescriptionFunc func() string

// Args holds CLI arguments parsed by go-arg.
type Args struct {
	Document   string `arg:"positional" placeholder:"MARKDOWN" help:"Markdown file whose local images are uploaded."`
	AlbumID    string `arg:"positional" placeholder:"ALBUM_ID" help:"Album id on the image host (0 = no album)."`
	ConfigPath string `arg:"-c,--config" help:"Path to a JSON config file."`
	Token      string `arg:"-t,--token" help:"API token; overrides config and MDIMG_TOKEN."`
	Endpoint   string `arg:"-e,--endpoint" help:"Upload endpoint URL; overrides config and MDIMG_ENDPOINT."`
	SkipCode   bool   `arg:"--skip-code" help:"Leave image references inside code blocks and code spans untouched."`
	Image      string `arg:"-i,--image" help:"Upload a single image and print its links instead of rewriting a document. ALBUM_ID is then the only positional."`
	Save       bool   `arg:"--save" help:"Store --token and --endpoint in the config file and exit."`
}

// Description provides custom help text for go-arg.
func (Args) Description() string {
	if ArgsDescriptionFunc != nil {
		return ArgsDescriptionFunc()
	}
	return ""
}

// UploadRequest describes one image to upload.
type UploadRequest struct {
	LocalPath string
	AlbumID   string
}

// UploadResult is the normalized answer of the image host.
// Only URL is guaranteed to be set.
type UploadResult struct {
	URL       string
	Markdown  string
	HTML      string
	DeleteURL string
}

// ImageReference is one `![alt](path)` match in a document.
// Start and End are byte offsets into the original text.
type ImageReference struct {
	Alt   string
	Path  string
	Start int
	End   int
}

// OutcomeStatus classifies what happened to an image reference.
type OutcomeStatus int

const (
	OutcomeUploaded OutcomeStatus = iota
	OutcomeRemote
	OutcomeFailed
	OutcomeSkippedCode
)

// String returns the string representation of the OutcomeStatus
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeUploaded:
		return "uploaded"
	case OutcomeRemote:
		return "remote"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkippedCode:
		return "skipped"
	default:
		return "unknown"
	}
}

// ImageOutcome records the result for a single reference.
type ImageOutcome struct {
	Ref    ImageReference
	Status OutcomeStatus
	URL    string
	Err    error
}

// UploadResponse mirrors the JSON envelope returned by the upload endpoint.
// Data stays raw until Status is known: failed uploads may carry an empty
// array or null in its place.
type UploadResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// UploadData is the payload of a successful upload.
type UploadData struct {
	Key   string      `json:"key,omitempty"`
	Name  string      `json:"name,omitempty"`
	Size  float64     `json:"size,omitempty"`
	Links UploadLinks `json:"links"`
}

// UploadLinks lists the link formats the host generates for an image.
type UploadLinks struct {
	URL       string `json:"url"`
	HTML      string `json:"html,omitempty"`
	BBCode    string `json:"bbcode,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
	DeleteURL string `json:"delete_url,omitempty"`
}
