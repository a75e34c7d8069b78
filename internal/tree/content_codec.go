package tree

import (
	"encoding/json"
	"fmt"
)

// EncodeContent returns the kind and JSON payload of c. Variants without a
// payload encode as nil.
func EncodeContent(c Content) (Kind, json.RawMessage, error) {
	switch v := c.(type) {
	case nil:
		return KindPlain, nil, nil
	case Plain, Placeholder:
		return v.Kind(), nil, nil
	case Page, CustomView, DirectLink:
		b, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("encode %s content: %w", v.Kind(), err)
		}
		return v.Kind(), b, nil
	default:
		return "", nil, fmt.Errorf("%w %T", ErrUnknownContent, c)
	}
}

// DecodeContent rebuilds a content variant from its kind and JSON payload.
func DecodeContent(kind Kind, payload []byte) (Content, error) {
	switch kind {
	case "", KindPlain:
		return Plain{}, nil
	case KindPlaceholder:
		return Placeholder{}, nil
	case KindPage:
		var p Page
		if err := decodePayload(payload, &p); err != nil {
			return nil, fmt.Errorf("decode page content: %w", err)
		}
		return p, nil
	case KindCustomView:
		var cv CustomView
		if err := decodePayload(payload, &cv); err != nil {
			return nil, fmt.Errorf("decode custom_view content: %w", err)
		}
		if cv.URLName == "" {
			return nil, fmt.Errorf("decode custom_view content: url_name is required")
		}
		return cv, nil
	case KindDirectLink:
		var dl DirectLink
		if err := decodePayload(payload, &dl); err != nil {
			return nil, fmt.Errorf("decode direct_link content: %w", err)
		}
		if dl.URL == "" {
			return nil, fmt.Errorf("decode direct_link content: url is required")
		}
		return dl, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownContent, kind)
	}
}

func decodePayload(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
