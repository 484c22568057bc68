package credential

const entryType = "OTP"

// Entry is a single Account of the JSON backup interchange format.
type Entry struct {
	Secret    string   `json:"secret"`
	Label     string   `json:"label"`
	Period    int      `json:"period"`
	Digits    int      `json:"digits"`
	Type      string   `json:"type"`
	Algorithm string   `json:"algorithm"`
	Thumbnail string   `json:"thumbnail"`
	LastUsed  int64    `json:"last_used"`
	Tags      []string `json:"tags"`
}

// ProviderName returns the first tag, or the default Provider name
// when the Entry has no usable tag.
func (e Entry) ProviderName(fallback string) string {
	if len(e.Tags) == 0 || e.Tags[0] == "" {
		return fallback
	}
	return e.Tags[0]
}
