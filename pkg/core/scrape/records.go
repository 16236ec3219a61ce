package scrape

import (
	"crypto/sha1"
	"fmt"
	"regexp"
	"strings"
)

// Segment flattening separators. Levels are joined with SegmentSeparator;
// within one level the dimension and its member are joined with
// DimensionSeparator. Splitting on SegmentSeparator recovers the ordered
// levels, so the flattened form round-trips. Both are stable across runs.
const (
	SegmentSeparator   = "|"
	DimensionSeparator = "="
)

// Context scopes facts to a time period and an optional dimensional
// segment. The segment is stored flattened into one string because the
// store indexes scalar fields only and the downstream tabular view cannot
// hold nested lists in a column.
type Context struct {
	AccessionNumber string `bson:"accessionNumber" json:"accessionNumber"`
	ContextID       string `bson:"contextId" json:"contextId"`
	Entity          string `bson:"entity,omitempty" json:"entity,omitempty"`
	Segment         string `bson:"segment,omitempty" json:"segment,omitempty"`
	SegmentDepth    int    `bson:"segmentDepth" json:"segmentDepth"`
	StartDate       string `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate         string `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Instant         string `bson:"instant,omitempty" json:"instant,omitempty"`
}

// LocalKey is the record-local identity within one accession number.
func (c Context) LocalKey() string { return c.ContextID }

// SegmentLevels recovers the ordered segment levels from the flattened form.
func (c Context) SegmentLevels() []string {
	if c.Segment == "" {
		return nil
	}
	return strings.Split(c.Segment, SegmentSeparator)
}

// FlattenSegment joins ordered segment levels into the stored form.
func FlattenSegment(levels []string) string {
	return strings.Join(levels, SegmentSeparator)
}

// LinkLabel maps an internal element identifier to a human-readable label.
type LinkLabel struct {
	AccessionNumber string `bson:"accessionNumber" json:"accessionNumber"`
	LabelID         string `bson:"labelId,omitempty" json:"labelId,omitempty"`
	XlinkLabel      string `bson:"xlinkLabel" json:"xlinkLabel"`
	Key             string `bson:"labelKey" json:"labelKey"`
	Role            string `bson:"xlinkRole,omitempty" json:"xlinkRole,omitempty"`
	Lang            string `bson:"lang,omitempty" json:"lang,omitempty"`
	Text            string `bson:"labelText" json:"labelText"`
}

func (l LinkLabel) LocalKey() string { return l.XlinkLabel + "|" + l.Role }

// Fact is one tagged value referencing a context and unit.
type Fact struct {
	AccessionNumber string `bson:"accessionNumber" json:"accessionNumber"`
	FactID          string `bson:"factId,omitempty" json:"factId,omitempty"`
	Name            string `bson:"factName" json:"factName"`
	ContextRef      string `bson:"contextRef,omitempty" json:"contextRef,omitempty"`
	UnitRef         string `bson:"unitRef,omitempty" json:"unitRef,omitempty"`
	Decimals        string `bson:"decimals,omitempty" json:"decimals,omitempty"`
	Value           string `bson:"factValue" json:"factValue"`
}

// LocalKey is the fact-local identity used for idempotent upsert. Facts
// rarely carry an id attribute across filers, so the fallback key is built
// from the fact's own coordinates plus a short value digest, which stays
// stable under re-scrape.
func (f Fact) LocalKey() string {
	if f.FactID != "" {
		return f.FactID
	}
	sum := sha1.Sum([]byte(f.Value))
	return fmt.Sprintf("%s|%s|%s|%x", f.Name, f.ContextRef, f.UnitRef, sum[:4])
}

// Search patterns for the children of a context node. These mirror the
// inconsistent namespacing seen across filers (xbrli:startDate vs
// startDate), so they match on substrings of the lowercased element name.
var (
	entityPattern    = regexp.MustCompile(`identifier`)
	startDatePattern = regexp.MustCompile(`startdate`)
	endDatePattern   = regexp.MustCompile(`enddate`)
	instantPattern   = regexp.MustCompile(`instant`)
	segmentPattern   = regexp.MustCompile(`segment`)
	memberPattern    = regexp.MustCompile(`^xbrldi:`)
)

// ContextFromFragment maps a located context node into a Context record,
// resolving nested dimensional members into the flattened segment string.
func ContextFromFragment(frag Fragment) Context {
	n := frag.Node
	c := Context{ContextID: attr(n, "id")}

	if e := findFirst(n, entityPattern); e != nil {
		c.Entity = fragmentText(e)
	}
	if d := findFirst(n, startDatePattern); d != nil {
		c.StartDate = fragmentText(d)
	}
	if d := findFirst(n, endDatePattern); d != nil {
		c.EndDate = fragmentText(d)
	}
	if d := findFirst(n, instantPattern); d != nil {
		c.Instant = fragmentText(d)
	}

	if seg := findFirst(n, segmentPattern); seg != nil {
		var levels []string
		for _, m := range findAll(seg, memberPattern) {
			levels = append(levels, attr(m, "dimension")+DimensionSeparator+fragmentText(m))
		}
		c.Segment = FlattenSegment(levels)
		c.SegmentDepth = len(levels)
	}
	return c
}

// FactFromFragment maps a located fact node into a Fact record. The
// element name is the taxonomy-qualified concept (e.g. us-gaap:revenues).
func FactFromFragment(frag Fragment) Fact {
	n := frag.Node
	return Fact{
		FactID:     attr(n, "id"),
		Name:       n.Data,
		ContextRef: attr(n, "contextref"),
		UnitRef:    attr(n, "unitref"),
		Decimals:   attr(n, "decimals"),
		Value:      frag.Text,
	}
}

// LinkLabelFromFragment maps a located link:label node into a LinkLabel.
func LinkLabelFromFragment(frag Fragment) LinkLabel {
	n := frag.Node
	l := LinkLabel{
		LabelID:    attr(n, "id"),
		XlinkLabel: attr(n, "xlink:label"),
		Role:       shortRole(attr(n, "xlink:role")),
		Lang:       attr(n, "xml:lang"),
		Text:       frag.Text,
	}
	l.Key = NormalizeLabelKey(l.XlinkLabel)
	return l
}

// NormalizeLabelKey converts linkbase locator labels such as
// "lab_us-gaap_Revenues_en-US" into the lowercased "us-gaap:revenues" form
// used to join labels onto facts.
func NormalizeLabelKey(xlinkLabel string) string {
	s := strings.TrimPrefix(xlinkLabel, "lab_")
	s = strings.TrimSuffix(s, "_en-US")
	parts := strings.Split(s, "_")
	if len(parts) >= 2 {
		return strings.ToLower(parts[0] + ":" + parts[1])
	}
	return strings.ToLower(s)
}

// shortRole keeps the final path segment of an xlink role URI
// (".../role/terseLabel" -> "terseLabel").
func shortRole(role string) string {
	if i := strings.LastIndex(role, "/"); i >= 0 {
		return role[i+1:]
	}
	return role
}
