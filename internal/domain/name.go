package domain

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// xmlUnsafe matches a leading run of characters that cannot start an XML
// name, or any interior run of characters outside [a-zA-Z._0-9].
var xmlUnsafe = regexp.MustCompile(`(^[^a-zA-Z._]+)|([^a-zA-Z._0-9]+)`)

var (
	slugStrip  = regexp.MustCompile(`[^\w\s-]`)
	slugHyphen = regexp.MustCompile(`[-\s]+`)
)

// SanitizeName replaces every run of characters that are not valid in a
// catalog resource name with a single underscore.
func SanitizeName(name string) string {
	return xmlUnsafe.ReplaceAllString(name, "_")
}

// SuffixedName returns the candidate name tried on the n-th collision.
func SuffixedName(name string, n int) string {
	return name + "_" + strconv.Itoa(n)
}

// TitleFromFilename derives a display title from a file path:
// "/data/roads_main.shp" becomes "Roads Main".
func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(titleCase(base), "_", " ")
}

// Slugify folds s to ASCII, lower-cases it, drops characters that are not
// word characters, spaces or hyphens, and joins the remaining words with
// underscores. "Café Map" becomes "cafe_map".
func Slugify(s string) string {
	s = slugStrip.ReplaceAllString(foldASCII(s), "")
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugHyphen.ReplaceAllString(s, "-")
	return strings.ReplaceAll(s, "-", "_")
}

// titleCase upper-cases the first letter of every letter run and lower-cases
// the rest, treating any non-letter as a word boundary.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// foldASCII decomposes s (NFKD) and drops what is left outside ASCII, so
// accented letters keep their base letter.
func foldASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
