package internal

import "context"

type ctxKey string

const ContextRequestMetadataKey ctxKey = "requestMetadata"

// RequestMetadata describes the client behind a request. It is recorded
// alongside audited actions.
type RequestMetadata struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

func RequestMetadataFromContext(ctx context.Context) RequestMetadata {
	if ctx == nil {
		return RequestMetadata{}
	}
	if md, ok := ctx.Value(ContextRequestMetadataKey).(RequestMetadata); ok {
		return md
	}
	return RequestMetadata{}
}

func ContextWithRequestMetadata(ctx context.Context, md RequestMetadata) context.Context {
	return context.WithValue(ctx, ContextRequestMetadataKey, md)
}
