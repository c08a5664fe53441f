// Package textnorm builds canonical comparison keys for person and club names.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Apostrophe is the canonical apostrophe kept in strict keys.
const Apostrophe = '\''

// Key is the pair of comparison keys derived from one input string.
// Loose drops apostrophes, Strict keeps them in canonical form.
type Key struct {
	Loose  string
	Strict string
}

func (k Key) IsZero() bool {
	return k.Loose == "" && k.Strict == ""
}

var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// Normalize maps text to its comparison keys. It is pure and total: the same
// input always yields the same keys and no input fails.
func Normalize(text string) Key {
	collapsed := strings.Join(strings.Fields(text), " ")
	if collapsed == "" {
		return Key{}
	}

	lowered := norm.NFC.String(strings.ToLower(collapsed))
	lowered = umlauts.Replace(lowered)
	strict := foldDiacritics(canonicalApostrophes(lowered))

	return Key{
		Loose:  strings.Join(strings.Fields(strings.ReplaceAll(strict, string(Apostrophe), "")), " "),
		Strict: strict,
	}
}

// Loose is shorthand for Normalize(text).Loose.
func Loose(text string) string {
	return Normalize(text).Loose
}

// Strict is shorthand for Normalize(text).Strict.
func Strict(text string) string {
	return Normalize(text).Strict
}

func canonicalApostrophes(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in))
	for i, r := range in {
		switch r {
		case '\'', '´', '`', '’', '‘', 'ʼ', '�':
			out = append(out, Apostrophe)
		case '?':
			// A question mark inside a word is a lost apostrophe from a lossy
			// encoding round trip.
			if i > 0 && i < len(in)-1 && unicode.IsLetter(in[i-1]) && unicode.IsLetter(in[i+1]) {
				out = append(out, Apostrophe)
				continue
			}
			out = append(out, r)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
