// Package api talks to the image host: one multipart upload per image,
// normalized into model.UploadResult or a typed *model.UploadError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmagar/mdimg/internal/model"
)

const (
	DefaultEndpoint   = "https://www.helloimg.com/api/v1/upload"
	DefaultPermission = "0"
	DefaultStrategyID = "1"
	UserAgent         = "mdimg/1.0 (+https://github.com/jmagar/mdimg)"

	uploadLabel = "upload"
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Client uploads images to a single endpoint with a fixed token.
// It is built once per run from the resolved config and holds no other state.
type Client struct {
	endpoint   string
	token      string
	permission string
	strategyID string
	httpClient *http.Client
	log        *RequestLog
}

// NewClient builds a Client from cfg. log may be nil.
func NewClient(cfg *model.Config, log *RequestLog) *Client {
	httpClient := &http.Client{}
	if cfg.TimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		token:      strings.TrimPrefix(cfg.Token, "Bearer "),
		permission: valueOr(cfg.Permission, DefaultPermission),
		strategyID: valueOr(cfg.StrategyID, DefaultStrategyID),
		httpClient: httpClient,
		log:        log,
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func valueOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Upload sends one image and returns its hosted links. Every error is a
// *model.UploadError. No retries are performed.
func (c *Client) Upload(ctx context.Context, req model.UploadRequest) (model.UploadResult, error) {
	size, err := checkLocalFile(req.LocalPath)
	if err != nil {
		upErr := &model.UploadError{Kind: model.KindNotFound, Path: req.LocalPath, Message: "image file does not exist", Err: err}
		c.log.LogRejected(uploadLabel, req.LocalPath, upErr)
		return model.UploadResult{}, upErr
	}

	body, contentType, err := c.buildBody(req)
	if err != nil {
		c.log.LogRejected(uploadLabel, req.LocalPath, err)
		return model.UploadResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return model.UploadResult{}, &model.UploadError{Kind: model.KindTransport, Path: req.LocalPath, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", UserAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		upErr := &model.UploadError{Kind: model.KindTransport, Path: req.LocalPath, Message: "request failed", Err: err}
		c.log.LogRequest(uploadLabel, req.LocalPath, req.AlbumID, size, 0, duration, "", err)
		return model.UploadResult{}, upErr
	}
	defer resp.Body.Close()

	res, err := decodeResponse(req.LocalPath, resp)
	c.log.LogRequest(uploadLabel, req.LocalPath, req.AlbumID, size, resp.StatusCode, duration, res.URL, err)
	if err != nil {
		return model.UploadResult{}, err
	}
	return res, nil
}

// checkLocalFile returns the size of path, or an error when path is not a
// readable regular file. Directories, dangling or looping symlinks, and
// permission problems all surface here.
func checkLocalFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return info.Size(), nil
}

// buildBody encodes the multipart form in memory. The image file is opened
// and closed here, before any network I/O starts.
func (c *Client) buildBody(req model.UploadRequest) (*bytes.Buffer, string, error) {
	f, err := os.Open(req.LocalPath)
	if err != nil {
		return nil, "", &model.UploadError{Kind: model.KindNotFound, Path: req.LocalPath, Message: "open image", Err: err}
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(filePartHeader(filepath.Base(req.LocalPath)))
	if err != nil {
		return nil, "", &model.UploadError{Kind: model.KindTransport, Path: req.LocalPath, Message: "encode form", Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		// A read error on an already opened file (EISDIR, EACCES on some
		// filesystems) still means the image is unusable.
		return nil, "", &model.UploadError{Kind: model.KindNotFound, Path: req.LocalPath, Message: "read image", Err: err}
	}
	fields := [][2]string{
		{"album_id", req.AlbumID},
		{"permission", c.permission},
		{"strategy_id", c.strategyID},
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", &model.UploadError{Kind: model.KindTransport, Path: req.LocalPath, Message: "encode form", Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", &model.UploadError{Kind: model.KindTransport, Path: req.LocalPath, Message: "encode form", Err: err}
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(filename string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return h
}

// decodeResponse maps an HTTP response onto UploadResult, checking in order:
// HTTP status, JSON envelope, the service's own status flag, and the links.
func decodeResponse(path string, resp *http.Response) (model.UploadResult, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.UploadResult{}, &model.UploadError{Kind: model.KindTransport, Path: path, Message: "read response", Err: err}
	}

	var envelope model.UploadResponse
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("HTTP %s", resp.Status)
		if decodeErr == nil && envelope.Message != "" {
			msg += ": " + envelope.Message
		}
		return model.UploadResult{}, &model.UploadError{Kind: model.KindHTTPStatus, Path: path, Message: msg}
	}
	if decodeErr != nil {
		return model.UploadResult{}, &model.UploadError{Kind: model.KindDecode, Path: path, Message: "response is not valid JSON", Err: decodeErr}
	}
	if !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = "unknown error"
		}
		return model.UploadResult{}, &model.UploadError{Kind: model.KindApplication, Path: path, Message: "rejected by host: " + msg}
	}

	var data model.UploadData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return model.UploadResult{}, &model.UploadError{Kind: model.KindDecode, Path: path, Message: "unexpected data payload", Err: err}
	}
	if data.Links.URL == "" {
		return model.UploadResult{}, &model.UploadError{Kind: model.KindDecode, Path: path, Message: "response has no data.links.url", Err: errMissingURL}
	}
	return model.UploadResult{
		URL:       data.Links.URL,
		Markdown:  data.Links.Markdown,
		HTML:      data.Links.HTML,
		DeleteURL: data.Links.DeleteURL,
	}, nil
}

var errMissingURL = errors.New("missing url")
