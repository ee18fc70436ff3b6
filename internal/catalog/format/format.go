// Package format turns a product's primary and extended names into a single
// display string, optionally cropped and with the extended part wrapped in a tag.
package format

import (
	"strings"
	"unicode"
)

// Options controls cropping and wrapping. Lengths count runes, not bytes.
type Options struct {
	// CropThreshold enables cropping when the combined name is longer. 0 disables.
	CropThreshold int `yaml:"crop_threshold"`
	// CropLength is the cropped length. 0 means crop to CropThreshold.
	CropLength int `yaml:"crop_length"`
	// Suffix is appended after a crop, e.g. "...".
	Suffix string `yaml:"suffix"`
	// WrapTag wraps the extended name, e.g. "span". Empty disables wrapping.
	WrapTag string `yaml:"wrap_tag"`
}

// Format joins name and extendedName with a single space.
//
// Without a wrap tag (or without an extended name) the joined string is
// cropped as a whole. With a wrap tag only the extended part is cropped, to
// CropLength minus the primary name and separator, and the primary name is
// never shortened. A non-positive budget for the extended part leaves an
// empty wrapped segment.
func Format(name, extendedName string, opts Options) string {
	if extendedName == "" || opts.WrapTag == "" {
		return crop(join(name, extendedName), opts)
	}

	ext := extendedName
	head := runeLen(name) + 1
	if opts.CropThreshold > 0 && head+runeLen(extendedName) > opts.CropThreshold {
		length := opts.CropLength
		if length <= 0 {
			length = opts.CropThreshold
		}
		budget := length - head
		if budget <= 0 {
			ext = ""
		} else {
			ext = trimRight(truncate(extendedName, budget)) + opts.Suffix
		}
	}
	return name + " " + wrap(ext, opts.WrapTag)
}

func crop(s string, opts Options) string {
	if opts.CropThreshold <= 0 || runeLen(s) <= opts.CropThreshold {
		return s
	}
	return trimRight(truncate(s, cropLength(opts))) + opts.Suffix
}

// cropLength is min(CropLength, CropThreshold), with 0 meaning the threshold.
func cropLength(opts Options) int {
	if opts.CropLength <= 0 || opts.CropLength > opts.CropThreshold {
		return opts.CropThreshold
	}
	return opts.CropLength
}

func join(name, extendedName string) string {
	switch {
	case name == "":
		return extendedName
	case extendedName == "":
		return name
	default:
		return name + " " + extendedName
	}
}

func wrap(s, tag string) string {
	return "<" + tag + ">" + s + "</" + tag + ">"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func trimRight(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

func runeLen(s string) int {
	return len([]rune(s))
}
