package sndcore

import "strings"

// ModArgs is a parsed "key=value,key2=value2" module argument string.
type ModArgs map[string]string

// ParseModArgs splits s on commas and each pair on the first '=',
// trimming surrounding whitespace from both key and value. A key with
// no '=' is stored with an empty value, tolerating bare flags.
func ParseModArgs(s string) ModArgs {
	args := make(ModArgs)
	if s == "" {
 return args
	}
	for _, pair := range strings.Split(s, ",") {
 pair = strings.TrimSpace(pair)
 if pair == "" {
 continue
 }
 key, value, _ := strings.Cut(pair, "=")
 key = strings.TrimSpace(key)
 if key == "" {
 continue
 }
 args[key] = strings.TrimSpace(value)
	}
	return args
}

// Get returns the raw string value for key, if present.
func (a ModArgs) Get(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// GetDefault returns the value for key, or def if absent.
func (a ModArgs) GetDefault(key, def string) string {
	if v, ok := a[key]; ok {
 return v
	}
	return def
}
