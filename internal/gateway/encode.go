package gateway

import (
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/abdul34602/novaaipro1/internal/storage"
)

// decodePayload turns an ingested attachment into an inline blob: the
// data-URI prefix is stripped and the base64 body decoded, with the declared
// media type forwarded alongside.
func decodePayload(att storage.Attachment) (*genai.Blob, error) {
	payload := att.Payload
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		payload = payload[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	mimeType := att.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &genai.Blob{MIMEType: mimeType, Data: data}, nil
}
