package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// knownKeys are decoded into typed fields; everything else lands in Extra.
var knownKeys = map[string]struct{}{
	"id": {}, "slug": {}, "developer": {}, "projectName": {}, "city": {}, "area": {},
	"status": {}, "bedrooms": {}, "propertyTypes": {},
	"minPriceAED": {}, "maxPriceAED": {}, "minAreaSqft": {}, "maxAreaSqft": {},
	"handover": {}, "externalLink": {}, "brochurePdfLink": {},
	"heroImage": {}, "galleryImages": {}, "videoLink": {}, "videoLinks": {},
	"3D_TourLink": {}, "tour3DLinks": {},
	"coords": {}, "latitude": {}, "longitude": {}, "mapPointsOfInterest": {},
	"phone": {}, "whatsapp": {}, "sourceRow": {},
}

func (p Project) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+len(knownKeys))
	for k, v := range p.Extra {
		if _, known := knownKeys[k]; !known {
			out[k] = v
		}
	}
	putString(out, "id", p.ID)
	putString(out, "slug", p.Slug)
	putString(out, "developer", string(p.Developer))
	if !p.ProjectName.IsZero() || p.ProjectName.IsLocalized() {
		out["projectName"] = p.ProjectName
	}
	if !p.City.IsZero() || p.City.IsLocalized() {
		out["city"] = p.City
	}
	if !p.Area.IsZero() || p.Area.IsLocalized() {
		out["area"] = p.Area
	}
	putString(out, "status", p.Status)
	if p.Bedrooms != nil {
		out["bedrooms"] = p.Bedrooms
	}
	if p.PropertyTypes != nil {
		out["propertyTypes"] = p.PropertyTypes
	}
	putFloat(out, "minPriceAED", p.MinPriceAED)
	putFloat(out, "maxPriceAED", p.MaxPriceAED)
	putFloat(out, "minAreaSqft", p.MinAreaSqft)
	putFloat(out, "maxAreaSqft", p.MaxAreaSqft)
	putString(out, "handover", p.Handover)
	putString(out, "externalLink", p.ExternalLink)
	putString(out, "brochurePdfLink", p.BrochurePDFLink)
	putString(out, "heroImage", p.HeroImage)
	out["galleryImages"] = nonNil(p.GalleryImages)
	putString(out, "videoLink", p.VideoLink)
	if p.VideoLinks != nil {
		out["videoLinks"] = p.VideoLinks
	}
	putString(out, "3D_TourLink", p.Tour3DLink)
	if p.Tour3DLinks != nil {
		out["tour3DLinks"] = p.Tour3DLinks
	}
	if p.Coords != nil {
		out["coords"] = p.Coords
	}
	putFloat(out, "latitude", p.Latitude)
	putFloat(out, "longitude", p.Longitude)
	if p.MapPointsOfInterest == nil {
		out["mapPointsOfInterest"] = []POI{}
	} else {
		out["mapPointsOfInterest"] = p.MapPointsOfInterest
	}
	putString(out, "phone", p.Phone)
	putString(out, "whatsapp", p.WhatsApp)
	if p.SourceRow > 0 {
		out["sourceRow"] = p.SourceRow
	}
	return json.Marshal(out)
}

func (p *Project) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*p = DecodeProject(m)
	return nil
}

// DecodeProject reads a loose JSON object into the strict type. Fields with an
// unexpected shape are treated as absent rather than failing the record.
func DecodeProject(m map[string]any) Project {
	var p Project
	p.ID = stringFromAny(m["id"])
	p.Slug, _ = m["slug"].(string)
	if d, ok := m["developer"].(string); ok {
		p.Developer = Developer(d)
	}
	p.ProjectName, _ = TextFromAny(m["projectName"])
	p.City, _ = TextFromAny(m["city"])
	p.Area, _ = TextFromAny(m["area"])
	p.Status, _ = m["status"].(string)
	p.Bedrooms = BedroomsFromAny(m["bedrooms"])
	p.PropertyTypes = StringsFromAny(m["propertyTypes"])
	p.MinPriceAED = FloatFromAny(m["minPriceAED"])
	p.MaxPriceAED = FloatFromAny(m["maxPriceAED"])
	p.MinAreaSqft = FloatFromAny(m["minAreaSqft"])
	p.MaxAreaSqft = FloatFromAny(m["maxAreaSqft"])
	p.Handover, _ = m["handover"].(string)
	p.ExternalLink, _ = m["externalLink"].(string)
	p.BrochurePDFLink, _ = m["brochurePdfLink"].(string)
	p.HeroImage, _ = m["heroImage"].(string)
	p.GalleryImages = nonNil(StringsFromAny(m["galleryImages"]))
	p.VideoLink, _ = m["videoLink"].(string)
	p.VideoLinks = StringsFromAny(m["videoLinks"])
	p.Tour3DLink, _ = m["3D_TourLink"].(string)
	p.Tour3DLinks = StringsFromAny(m["tour3DLinks"])
	if arr, ok := m["coords"].([]any); ok {
		p.Coords = make([]*float64, 0, len(arr))
		for _, c := range arr {
			p.Coords = append(p.Coords, FloatFromAny(c))
		}
	}
	p.Latitude = FloatFromAny(m["latitude"])
	p.Longitude = FloatFromAny(m["longitude"])
	p.MapPointsOfInterest = []POI{}
	if arr, ok := m["mapPointsOfInterest"].([]any); ok {
		for _, it := range arr {
			if obj, ok := it.(map[string]any); ok {
				p.MapPointsOfInterest = append(p.MapPointsOfInterest, POIFromMap(obj))
			}
		}
	}
	p.Phone, _ = m["phone"].(string)
	p.WhatsApp, _ = m["whatsapp"].(string)
	if f := FloatFromAny(m["sourceRow"]); f != nil {
		p.SourceRow = int(*f)
	}
	for k, v := range m {
		if _, known := knownKeys[k]; known {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	return p
}

// FloatFromAny accepts JSON numbers and numeric strings; non-finite → nil.
func FloatFromAny(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// StringsFromAny keeps the string members of a JSON array; nil for non-arrays.
func StringsFromAny(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringFromAny(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func putString(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func putFloat(m map[string]any, k string, v *float64) {
	if v != nil {
		m[k] = *v
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
