package app

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

type weightedTag struct {
	tag     string
	quality float64
}

// parseAcceptLanguage splits an Accept-Language header into tags ordered by
// descending quality. A missing or unparsable q weight counts as 1.0; ties
// keep header order.
func parseAcceptLanguage(header string) []weightedTag {
	var tags []weightedTag
	for _, entry := range strings.Split(header, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ";")
		tag := strings.TrimSpace(parts[0])
		if tag == "" {
			continue
		}
		quality := 1.0
		if len(parts) > 1 {
			param := strings.TrimSpace(parts[1])
			if strings.HasPrefix(param, "q=") {
				if q, err := strconv.ParseFloat(param[2:], 64); err == nil {
					quality = q
				}
			}
		}
		tags = append(tags, weightedTag{tag: tag, quality: quality})
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].quality > tags[j].quality })
	return tags
}

// dominantRegion returns the region subtag of the highest weighted language,
// or "" if that tag names no country. Tags x/text rejects fall back to a
// two-letter second subtag.
func dominantRegion(header string) string {
	tags := parseAcceptLanguage(header)
	if len(tags) == 0 {
		return ""
	}
	raw := strings.ReplaceAll(tags[0].tag, "_", "-")
	tag, err := language.Parse(raw)
	if err != nil {
		return rawRegion(raw)
	}
	region, confidence := tag.Region()
	if confidence != language.Exact || !region.IsCountry() {
		return ""
	}
	return region.String()
}

func rawRegion(tag string) string {
	parts := strings.Split(tag, "-")
	if len(parts) < 2 || len(parts[1]) != 2 {
		return ""
	}
	for _, c := range parts[1] {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return ""
		}
	}
	return strings.ToUpper(parts[1])
}
