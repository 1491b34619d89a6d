// Package lang maps the host's language codes to the language names
// understood by the Qwen-MT models.
package lang

// Auto is the host code for source language detection.
const Auto = "auto"

// supported pairs host codes with Qwen-MT language names, in the order the
// host lists them.
var supported = [][2]string{
	{Auto, "auto"},
	{"zh-Hans", "Chinese"},
	{"zh-Hant", "Traditional Chinese"},
	{"yue", "Cantonese"},
	{"en", "English"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"fr", "French"},
	{"de", "German"},
	{"es", "Spanish"},
	{"it", "Italian"},
	{"pt", "Portuguese"},
	{"ru", "Russian"},
	{"ar", "Arabic"},
	{"th", "Thai"},
	{"vi", "Vietnamese"},
	{"id", "Indonesian"},
	{"ms", "Malay"},
	{"km", "Khmer"},
	{"lo", "Lao"},
	{"my", "Burmese"},
	{"tl", "Tagalog"},
	{"nl", "Dutch"},
	{"pl", "Polish"},
	{"cs", "Czech"},
	{"uk", "Ukrainian"},
	{"el", "Greek"},
	{"tr", "Turkish"},
	{"fa", "Persian"},
	{"he", "Hebrew"},
	{"hi", "Hindi"},
	{"bn", "Bengali"},
	{"ur", "Urdu"},
	{"hu", "Hungarian"},
	{"ro", "Romanian"},
	{"sv", "Swedish"},
	{"da", "Danish"},
	{"fi", "Finnish"},
}

var names = func() map[string]string {
	m := make(map[string]string, len(supported))
	for _, p := range supported {
		m[p[0]] = p[1]
	}
	return m
}()

// Map returns the Qwen-MT name for a host language code.
// Unknown codes are returned unchanged.
func Map(code string) string {
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

// Supported returns the host codes this provider accepts.
func Supported() []string {
	out := make([]string, 0, len(supported))
	for _, p := range supported {
		out = append(out, p[0])
	}
	return out
}
