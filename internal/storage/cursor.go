package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// cursor is the content of a continuation token. Every backend binds the
// listing prefix to its own resume position so that a token alone continues
// a filtered listing, even on stores whose native token does not carry the
// prefix.
type cursor struct {
	Prefix   string
	Position string
}

// wireCursor carries keys as bytes: JSON strings would replace invalid UTF-8
// and keys are arbitrary byte strings.
type wireCursor struct {
	Prefix   []byte `json:"p,omitempty"`
	Position []byte `json:"k"`
}

func encodeCursor(c cursor) string {
	raw, _ := json.Marshal(wireCursor{Prefix: []byte(c.Prefix), Position: []byte(c.Position)})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(token string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, validationError("malformed continuation token")
	}
	var w wireCursor
	if err := json.Unmarshal(raw, &w); err != nil {
		return cursor{}, validationError("malformed continuation token")
	}
	if len(w.Position) == 0 {
		return cursor{}, newError(KindValidation, errors.New("continuation token has no position"))
	}
	return cursor{Prefix: string(w.Prefix), Position: string(w.Position)}, nil
}

// resolveListRequest returns the prefix and native resume position for req.
func resolveListRequest(req ListRequest) (prefix, position string, err error) {
	if req.ContinuationToken == "" {
		return req.Prefix, "", nil
	}
	c, err := decodeCursor(req.ContinuationToken)
	if err != nil {
		return "", "", err
	}
	return c.Prefix, c.Position, nil
}
