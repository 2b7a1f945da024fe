package model

import "context"

// ImageUploader abstracts the image host so the rewriter can be driven by a stub.
type ImageUploader interface {
	Upload(ctx context.Context, req UploadRequest) (UploadResult, error)
}

// UploaderFunc adapts a plain function to ImageUploader.
type UploaderFunc func(ctx context.Context, req UploadRequest) (UploadResult, error)

// Upload calls f(ctx, req).
func (f UploaderFunc) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	return f(ctx, req)
}
