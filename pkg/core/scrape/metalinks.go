package scrape

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// MetaLinksTag is one entry from the MetaLinks manifest's tag dictionary:
// the per-filing index of taxonomy concepts and their display labels.
type MetaLinksTag struct {
	AccessionNumber string `bson:"accessionNumber" json:"accessionNumber"`
	LabelKey        string `bson:"labelKey" json:"labelKey"`
	LocalName       string `bson:"localName,omitempty" json:"localName,omitempty"`
	Label           string `bson:"label,omitempty" json:"label,omitempty"`
	TerseLabel      string `bson:"terseLabel,omitempty" json:"terseLabel,omitempty"`
	Documentation   string `bson:"documentation,omitempty" json:"documentation,omitempty"`
}

func (t MetaLinksTag) LocalKey() string { return t.LabelKey }

var keyCleanPattern = regexp.MustCompile(`[^a-z0-9]`)

// cleanKey normalizes a manifest key for lookup: lowercase, alphanumerics
// only. Manifest key casing varies across filers and tool versions
// ("en-US" vs "en-us", "terseLabel" vs "terselabel").
func cleanKey(k string) string {
	return keyCleanPattern.ReplaceAllString(strings.ToLower(k), "")
}

func lookupMap(m map[string]any, key string) map[string]any {
	for k, v := range m {
		if cleanKey(k) == key {
			if mv, ok := v.(map[string]any); ok {
				return mv
			}
		}
	}
	return nil
}

func lookupString(m map[string]any, key string) string {
	for k, v := range m {
		if cleanKey(k) == key {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// ParseMetaLinks decodes a MetaLinks.json manifest into its tag
// dictionary. Manifests from older generator versions are frequently
// truncated or loosely quoted, so a strict decode failure falls back to
// json-repair before giving up.
func ParseMetaLinks(data []byte) ([]MetaLinksTag, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		repaired, rerr := jsonrepair.RepairJSON(string(data))
		if rerr != nil {
			return nil, &ParseError{Source: "MetaLinks.json", Err: err}
		}
		if uerr := json.Unmarshal([]byte(repaired), &doc); uerr != nil {
			return nil, &ParseError{Source: "MetaLinks.json", Err: uerr}
		}
	}

	instances := lookupMap(doc, "instance")
	if instances == nil {
		return nil, &ParseError{Source: "MetaLinks.json", Err: fmt.Errorf("no instance section")}
	}

	var tags []MetaLinksTag
	// One instance per manifest in practice; iterate defensively anyway.
	for _, instVal := range instances {
		inst, ok := instVal.(map[string]any)
		if !ok {
			continue
		}
		tagMap := lookupMap(inst, "tag")
		for key, raw := range tagMap {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			tag := MetaLinksTag{
				LabelKey:  strings.ToLower(key),
				LocalName: lookupString(entry, "localname"),
			}
			if lang := lookupMap(entry, "lang"); lang != nil {
				if enus := lookupMap(lang, "enus"); enus != nil {
					if role := lookupMap(enus, "role"); role != nil {
						tag.Label = lookupString(role, "label")
						tag.TerseLabel = lookupString(role, "terselabel")
						tag.Documentation = lookupString(role, "documentation")
					}
				}
			}
			tags = append(tags, tag)
		}
	}
	return tags, nil
}
