// Package status maps raw status codes from the data source into the fixed
// set of categories the dashboard shows to the user.
package status

import "strings"

// Code is a status category reported by the data source.
type Code string

// Categories understood by the dashboard. Anything else classifies as Unknown.
const (
	NeedConfig    Code = "need_config"
	NeedAuth      Code = "need_auth"
	Success       Code = "success"
	Error         Code = "error"
	APILimitation Code = "api_limitation"
	NoData        Code = "no_data"
	Demo          Code = "demo"
	Unknown       Code = "unknown"
)

// Action is the call-to-action attached to a category.
type Action string

const (
	ActionNone      Action = ""
	ActionConfigure Action = "configure"
	ActionAuthorize Action = "authorize"
	ActionDemo      Action = "demo"
)

// Banner is how prominently the renderer should show the status.
type Banner int

const (
	BannerHidden Banner = iota
	BannerInfo
	BannerWarning
	BannerError
)

func (b Banner) String() string {
	switch b {
	case BannerHidden:
		return "hidden"
	case BannerInfo:
		return "info"
	case BannerWarning:
		return "warning"
	case BannerError:
		return "error"
	default:
		return "unknown"
	}
}

// IllustrativeNote is appended to api_limitation messages.
const IllustrativeNote = "Displayed data is illustrative."

// Classification is the user-facing reading of a (code, message) pair.
type Classification struct {
	Category    Code
	NeedsAction bool
	Action      Action
	Banner      Banner
	Message     string
}

// aliases maps codes the server emits outside the documented set.
var aliases = map[string]Code{
	"no_config": NeedConfig,
}

type rule struct {
	action  Action
	banner  Banner
	message string
}

var rules = map[Code]rule{
	NeedConfig:    {ActionConfigure, BannerWarning, "Configure an API key to load data."},
	NeedAuth:      {ActionAuthorize, BannerWarning, "Authorization required to fetch data."},
	Success:       {ActionNone, BannerHidden, "Connected."},
	Error:         {ActionNone, BannerError, "Failed to load data."},
	APILimitation: {ActionNone, BannerWarning, "The API limits which data can be queried."},
	Demo:          {ActionDemo, BannerInfo, "Showing demo data."},
	NoData:        {ActionNone, BannerInfo, "No data available."},
	Unknown:       {ActionNone, BannerInfo, "Status unknown."},
}

// Classify maps a raw code and message to a Classification. It has no side
// effects and always returns the same result for the same input.
func Classify(code, message string) Classification {
	category := Parse(code)
	r := rules[category]

	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = r.message
	}
	if category == APILimitation {
		msg = annotate(msg)
	}

	return Classification{
		Category:    category,
		NeedsAction: r.action != ActionNone,
		Action:      r.action,
		Banner:      r.banner,
		Message:     msg,
	}
}

// Parse normalises a raw code into a known Code.
func Parse(code string) Code {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if alias, ok := aliases[normalized]; ok {
		return alias
	}
	c := Code(normalized)
	if _, ok := rules[c]; ok {
		return c
	}
	return Unknown
}

func annotate(msg string) string {
	if strings.HasSuffix(msg, IllustrativeNote) {
		return msg
	}
	if !strings.HasSuffix(msg, ".") && !strings.HasSuffix(msg, "。") {
		msg += "."
	}
	return msg + " " + IllustrativeNote
}
