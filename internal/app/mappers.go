package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"imperium_gate/internal/domain"
	"imperium_gate/internal/ingest"
	"imperium_gate/internal/normalize"
)

/********** alias registry (single source of truth) **********/

var columnAliases = map[string][]string{
	"name_en":   {"Project (EN)", "Project", "Name (EN)", "Display Name"},
	"name_ar":   {"Project (AR)", "Arabic Name"},
	"brand":     {"Brand", "Developer"},
	"slug":      {"Slug", "slug"},
	"city":      {"City (EN)", "City"},
	"area":      {"Area (EN)", "Area"},
	"status":    {"Status (EN)", "Status"},
	"bedrooms":  {"Bedrooms"},
	"types":     {"Property Types"},
	"min_price": {"Min Price (AED)", "MinPriceAED"},
	"max_price": {"Max Price (AED)", "MaxPriceAED"},
	"min_sqft":  {"Min Area (sqft)", "MinAreaSqft"},
	"max_sqft":  {"Max Area (sqft)", "MaxAreaSqft"},
	"handover":  {"Delivery", "Handover"},
	"link":      {"Project Link", "Link"},
	"brochure":  {"Brochure", "Brochure PDF"},
	"video":     {"Video"},
	"tour3d":    {"3D Tour"},
	"lat":       {"lat", "Lat", "coords_lat"},
	"lon":       {"lon", "Lng", "coords_lon"},
}

// DefaultContactNumber is stamped on every ingested project.
const DefaultContactNumber = "+971556628972"

func col(r ingest.Row, key string) string { return r.Get(columnAliases[key]...) }

/********** CSV row → project **********/

// BuildFromRow maps one spreadsheet row onto a Project. ok is false when the
// brand is outside the fixed developer set.
func BuildFromRow(r ingest.Row, contact string) (p domain.Project, ok bool) {
	dev := normalize.Developer(col(r, "brand"))
	if !dev.Valid() {
		return domain.Project{}, false
	}
	if contact == "" {
		contact = DefaultContactNumber
	}
	enName := col(r, "name_en")
	slug := baseSlug(col(r, "slug"), enName, r.Line)

	p = domain.Project{
		ID:              slug,
		Slug:            slug,
		Developer:       dev,
		ProjectName:     domain.Localized(enName, col(r, "name_ar")),
		City:            domain.Localized(col(r, "city"), ""),
		Area:            domain.Localized(col(r, "area"), ""),
		Status:          strings.ToLower(col(r, "status")),
		Bedrooms:        domain.BedroomList(normalize.Bedrooms(col(r, "bedrooms"))...),
		PropertyTypes:   normalize.PropertyTypes(col(r, "types")),
		MinPriceAED:     normalize.Number(col(r, "min_price")),
		MaxPriceAED:     normalize.Number(col(r, "max_price")),
		MinAreaSqft:     normalize.Number(col(r, "min_sqft")),
		MaxAreaSqft:     normalize.Number(col(r, "max_sqft")),
		Handover:        col(r, "handover"),
		ExternalLink:    col(r, "link"),
		BrochurePDFLink: normalize.PDFLink(col(r, "brochure")),
		VideoLinks:      normalize.HTTPLinks(col(r, "video")),
		Tour3DLinks:     normalize.Tour3DLinks(col(r, "tour3d")),
		GalleryImages:   []string{},
		Phone:           contact,
		WhatsApp:        contact,
		SourceRow:       r.Line,
	}
	lat, lon := col(r, "lat"), col(r, "lon")
	if lat != "" || lon != "" {
		p.Coords = []*float64{nonZeroFloat(lat), nonZeroFloat(lon)}
	}
	return p, true
}

// rowSlug resolves the base slug: slug column, then English name, then the row.
// Empty means the row carries neither a slug nor a name.
func rowSlug(p domain.Project) string {
	return baseSlug(p.Slug, p.ProjectName.Resolve("en"), p.SourceRow)
}

// baseSlug falls through to row-N when neither input survives slugify, as
// with a name written only in Arabic script.
func baseSlug(slug, name string, line int) string {
	if slug == "" && name == "" {
		return ""
	}
	return normalize.Slug(slug, normalize.Slug(name, fmt.Sprintf("row-%d", line)))
}

func nonZeroFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f == 0 {
		return nil
	}
	return &f
}

/********** loose JSON → project **********/

// NormalizeRaw is the single adapter from any raw input variant into Project.
func NormalizeRaw(rec domain.RawRecord) domain.Project {
	m := make(map[string]any, len(rec.Fields)+4)
	for k, v := range rec.Fields {
		m[k] = v
	}
	if rec.Developer != "" {
		m["developer"] = string(rec.Developer)
	}

	file := rec.File
	if file == "" {
		file = "project.json"
	}
	// Directory records always re-derive the slug; others only fill a gap.
	if rec.Source == domain.SourceLegacyFile || isBlank(m["slug"]) {
		m["slug"] = generateSlug(m, file)
	}

	if isBlank(m["projectName"]) {
		if t, ok := m["title"]; ok && t != nil {
			m["projectName"] = t
		} else if n, ok := m["name"].(string); ok {
			m["projectName"] = n
		}
	}
	if isBlank(m["heroImage"]) && !isBlank(m["image"]) {
		m["heroImage"] = m["image"]
	}

	m["mapPointsOfInterest"] = flattenPOIs(m["mapPointsOfInterest"])
	if _, ok := m["galleryImages"].([]any); !ok {
		m["galleryImages"] = []any{}
	}
	return domain.DecodeProject(m)
}

// generateSlug prefers an explicit slug, then the project name, then the file.
func generateSlug(m map[string]any, file string) string {
	if s, ok := m["slug"].(string); ok && strings.TrimSpace(s) != "" {
		return normalize.Slug(strings.TrimSpace(s), file)
	}
	var name string
	switch v := m["projectName"].(type) {
	case string:
		name = v
	case map[string]any:
		if en, _ := v["en"].(string); en != "" {
			name = en
		} else {
			name, _ = v["ar"].(string)
		}
	}
	if strings.TrimSpace(name) != "" {
		return normalize.Slug(strings.TrimSpace(name), file)
	}
	return normalize.Slug(file, "")
}

// flattenPOIs accepts a flat array or a category → items mapping and returns
// one array of POI objects. String items become bilingual names.
func flattenPOIs(v any) []any {
	out := []any{}
	switch x := v.(type) {
	case []any:
		for _, it := range x {
			obj, ok := it.(map[string]any)
			if !ok {
				continue
			}
			poi := copyMap(obj)
			if _, ok := poi["category"].(string); !ok {
				delete(poi, "category")
			}
			out = append(out, poi)
		}
	case map[string]any:
		cats := make([]string, 0, len(x))
		for c := range x {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		for _, cat := range cats {
			items, ok := x[cat].([]any)
			if !ok {
				continue
			}
			for _, it := range items {
				switch t := it.(type) {
				case string:
					out = append(out, map[string]any{
						"name":        map[string]any{"en": t, "ar": t},
						"category":    cat,
						"coordinates": nil,
					})
				case map[string]any:
					poi := copyMap(t)
					poi["category"] = cat
					out = append(out, poi)
				}
			}
		}
	}
	return out
}

/********** tiny helpers **********/

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
