package model

// Link is the metadata record for a shortened URL
type Link struct {
	ShortKey    string `json:"key"`          // 8 lowercase alphanumeric characters
	LongURL     string `json:"long_url"`     // destination, http:// or https://
	CreatedAt   int64  `json:"created_at"`   // unix seconds
	TotalClicks int64  `json:"total_clicks"` // resolved redirects so far
	LastClick   *int64 `json:"last_click"`   // unix seconds, nil until the first redirect
}

// RedirectLogEntry is one analytics record per resolved redirect
type RedirectLogEntry struct {
	ShortKey  string
	Timestamp int64  // unix seconds
	IPHash    string // hex SHA-256 of the client address, never the raw address
	UserAgent string
	Referrer  string
}

// RedirectEvent is what the redirect path hands to the analytics recorder
type RedirectEvent struct {
	ShortKey  string
	ClientIP  string
	UserAgent string
	Referrer  string
	RequestID string
}

// ShortenRequest is the API request body. Both casings of the field are
// accepted. Values keep their JSON type so a non-string URL can be told
// apart from malformed JSON.
type ShortenRequest struct {
	LongURL      any `json:"long_url"`
	LongURLCamel any `json:"longUrl"`
}

// URL returns whichever field the client sent. long_url wins unless it is
// absent, null, false, zero or empty. A non-string value yields "".
func (r ShortenRequest) URL() string {
	v := r.LongURL
	if !present(v) {
		v = r.LongURLCamel
	}
	s, _ := v.(string)
	return s
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	default:
		return true
	}
}

// ShortenResponse is the API response
type ShortenResponse struct {
	ShortURL string `json:"short_url"`
	LongURL  string `json:"long_url"`
	Key      string `json:"key"`
}
