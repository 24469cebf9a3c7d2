package links

import (
	"regexp"
	"strings"
)

// Variant describes how a link behaves when followed or rendered
type Variant int

const (
	Invalid  Variant = iota // empty href, callers must guard against it
	Internal                // same-app route
	External                // opens in a new tab
	Special                 // #anchor, mailto:, tel: (left to the platform)
	Download                // href carried the download sigil
)

// Sigil marks a stored href as download-flagged
const Sigil = "!"

func (v Variant) String() string {
	switch v {
	case Internal:
		return "internal"
	case External:
		return "external"
	case Special:
		return "special"
	case Download:
		return "download"
	default:
		return "invalid"
	}
}

var (
	specialPrefixes  = []string{"#", "mailto:", "tel:"}
	explicitProtocol = regexp.MustCompile(`^https?://`)
	// label(.label)*.tld with an optional port and path/query/fragment
	bareDomain = regexp.MustCompile(`^[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}(?::\d+)?(?:[/?#].*)?$`)
)

// Classify returns the variant of a raw href as stored in markdown.
// Rules are applied in priority order.
func Classify(href string) Variant {
	if href == "" {
		return Invalid
	}
	if strings.HasPrefix(href, Sigil) {
		return Download
	}
	return classifyTarget(href)
}

// classifyTarget classifies an href that carries no sigil
func classifyTarget(href string) Variant {
	if href == "" {
		return Invalid
	}
	for _, p := range specialPrefixes {
		if strings.HasPrefix(href, p) {
			return Special
		}
	}
	if explicitProtocol.MatchString(href) {
		return External
	}
	if isRelative(href) {
		return Internal
	}
	if bareDomain.MatchString(href) {
		return External
	}
	return Internal
}

// ClassifyTarget classifies an href whose sigil has already been stripped.
// It never returns Download.
func ClassifyTarget(href string) Variant {
	return classifyTarget(href)
}

func isRelative(href string) bool {
	return strings.HasPrefix(href, "/") ||
		strings.HasPrefix(href, "./") ||
		strings.HasPrefix(href, "../")
}

// Target is what the navigation collaborator receives
type Target struct {
	Variant Variant // variant of the link itself (Download stays Download)
	Kind    Variant // where the URL points: Internal, External or Special
	URL     string  // resolved URL or route
}

// Resolve turns a stored href into a navigation target. The stored href
// is never modified; https:// is only added here for bare domains.
func Resolve(href string) Target {
	variant := Classify(href)
	raw := href
	if variant == Download {
		raw = strings.TrimPrefix(href, Sigil)
	}
	kind := classifyTarget(raw)

	t := Target{Variant: variant, Kind: kind, URL: raw}
	switch kind {
	case External:
		if !explicitProtocol.MatchString(raw) {
			t.URL = "https://" + raw
		}
	case Internal:
		t.URL = strings.TrimPrefix(raw, "./")
	}
	if variant != Download {
		t.Variant = kind
	}
	return t
}

// Route converts an internal href into a page slug.
// "/about", "./about" and "about" all route to "about"; "/" routes to "".
func Route(href string) string {
	r := strings.TrimPrefix(href, "./")
	for strings.HasPrefix(r, "../") {
		r = strings.TrimPrefix(r, "../")
	}
	if i := strings.IndexAny(r, "?#"); i >= 0 {
		r = r[:i]
	}
	r = strings.Trim(r, "/")
	return strings.TrimSuffix(r, ".md")
}

// RenderAttrs are presentation attributes derived from classification
type RenderAttrs struct {
	Target string
	Rel    string
}

const externalRel = "noopener noreferrer nofollow"

// Attrs returns the render attributes for a resolved target.
// Only links that point outside the app open a new tab.
func Attrs(t Target) RenderAttrs {
	if t.Kind == External {
		return RenderAttrs{Target: "_blank", Rel: externalRel}
	}
	return RenderAttrs{}
}
