package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

var requestDataKey ctxKey

// RequestData carries per-request identity and locale through the context so
// services receive them as inputs rather than reading ambient session state.
type RequestData struct {
	TokenString  string
	RefreshToken string
	UserID       uuid.UUID
	IsAdmin      bool
	Language     string
	IPAddress    string
	UserAgent    string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}

// Language returns the request language or the platform default.
func Language(ctx context.Context) string {
	if rd := GetRequestData(ctx); rd != nil && rd.Language != "" {
		return rd.Language
	}
	return "zh_CN"
}
