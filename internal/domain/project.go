package domain

import (
	"encoding/json"
	"strings"
)

type Developer string

const (
	DeveloperEmaar   Developer = "emaar"
	DeveloperDamac   Developer = "damac"
	DeveloperNakheel Developer = "nakheel"
	DeveloperSobha   Developer = "sobha"

	// DeveloperUnknown marks a brand outside the fixed set; such rows are dropped.
	DeveloperUnknown Developer = ""
)

// Developers is the fixed set, in report order.
var Developers = []Developer{DeveloperEmaar, DeveloperDamac, DeveloperNakheel, DeveloperSobha}

func (d Developer) Valid() bool {
	for _, k := range Developers {
		if d == k {
			return true
		}
	}
	return false
}

func (d Developer) String() string { return string(d) }

// Project is the canonical record served to the presentation layer.
// Optional scalars are pointers; unknown source keys are kept in Extra.
type Project struct {
	ID            string
	Slug          string
	Developer     Developer
	ProjectName   LocalizedText
	City          LocalizedText
	Area          LocalizedText
	Status        string
	Bedrooms      *BedroomSet
	PropertyTypes []string

	MinPriceAED *float64
	MaxPriceAED *float64
	MinAreaSqft *float64
	MaxAreaSqft *float64

	Handover        string
	ExternalLink    string
	BrochurePDFLink string

	HeroImage     string
	GalleryImages []string
	VideoLink     string
	VideoLinks    []string
	Tour3DLink    string // legacy "3D_TourLink"
	Tour3DLinks   []string

	Coords              []*float64
	Latitude            *float64
	Longitude           *float64
	MapPointsOfInterest []POI

	Phone     string
	WhatsApp  string
	SourceRow int

	Extra map[string]any
}

// Name returns the project name for locale with the en → ar fallback.
func (p Project) Name(locale string) string { return p.ProjectName.Resolve(locale) }

// LatLon prefers explicit latitude/longitude, then the coords pair.
func (p Project) LatLon() (lat, lon float64, ok bool) {
	if p.Latitude != nil && p.Longitude != nil {
		return *p.Latitude, *p.Longitude, true
	}
	if len(p.Coords) == 2 && p.Coords[0] != nil && p.Coords[1] != nil {
		return *p.Coords[0], *p.Coords[1], true
	}
	return 0, 0, false
}

type ManifestEntry struct {
	Slug        string `json:"slug"`
	ProjectName string `json:"projectName"`
}

// DeveloperCount is one row of the per-developer aggregate.
type DeveloperCount struct {
	Developer Developer `json:"developer"`
	Count     int       `json:"count"`
}

// ---- bilingual text ----

// LocalizedText holds either a plain string or an {en, ar} pair.
type LocalizedText struct {
	Value     string
	EN        string
	AR        string
	localized bool
}

func Text(s string) LocalizedText { return LocalizedText{Value: s} }

func Localized(en, ar string) LocalizedText {
	return LocalizedText{EN: en, AR: ar, localized: true}
}

func (t LocalizedText) IsLocalized() bool { return t.localized }

func (t LocalizedText) IsZero() bool {
	return t.Value == "" && t.EN == "" && t.AR == ""
}

// Resolve walks requested locale → en → ar → "".
func (t LocalizedText) Resolve(locale string) string {
	if !t.localized {
		return t.Value
	}
	switch strings.ToLower(locale) {
	case "ar":
		if t.AR != "" {
			return t.AR
		}
	case "en":
		if t.EN != "" {
			return t.EN
		}
	}
	if t.EN != "" {
		return t.EN
	}
	return t.AR
}

func (t LocalizedText) MarshalJSON() ([]byte, error) {
	if !t.localized {
		return json.Marshal(t.Value)
	}
	m := map[string]string{"en": t.EN}
	if t.AR != "" {
		m["ar"] = t.AR
	}
	return json.Marshal(m)
}

func (t *LocalizedText) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t, _ = TextFromAny(v)
	return nil
}

// TextFromAny accepts a string or an {en, ar} object; anything else is absent.
func TextFromAny(v any) (LocalizedText, bool) {
	switch x := v.(type) {
	case string:
		return Text(x), true
	case map[string]any:
		en, _ := x["en"].(string)
		ar, _ := x["ar"].(string)
		return Localized(en, ar), true
	}
	return LocalizedText{}, false
}

// ---- bedrooms ----

const StudioLabel = "Studio"

// Bedroom is "Studio", a numeric count, or an opaque legacy label.
type Bedroom struct {
	Studio bool
	Count  int
	Label  string
}

func Studio() Bedroom     { return Bedroom{Studio: true} }
func Rooms(n int) Bedroom { return Bedroom{Count: n} }

func (b Bedroom) MarshalJSON() ([]byte, error) {
	switch {
	case b.Studio:
		return json.Marshal(StudioLabel)
	case b.Label != "":
		return json.Marshal(b.Label)
	}
	return json.Marshal(b.Count)
}

func (b *Bedroom) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = bedroomFromAny(v)
	return nil
}

func bedroomFromAny(v any) Bedroom {
	switch x := v.(type) {
	case float64:
		return Rooms(int(x))
	case string:
		if strings.EqualFold(strings.TrimSpace(x), StudioLabel) {
			return Studio()
		}
		return Bedroom{Label: x}
	}
	return Bedroom{}
}

// BedroomSet is either an ordered list or a pre-formatted label kept verbatim.
type BedroomSet struct {
	List    []Bedroom
	Label   string
	isLabel bool
}

func BedroomList(bs ...Bedroom) *BedroomSet { return &BedroomSet{List: bs} }
func BedroomLabel(s string) *BedroomSet      { return &BedroomSet{Label: s, isLabel: true} }

func (s BedroomSet) IsLabel() bool { return s.isLabel }

func (s BedroomSet) MarshalJSON() ([]byte, error) {
	if s.isLabel {
		return json.Marshal(s.Label)
	}
	if s.List == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.List)
}

func (s *BedroomSet) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if out := BedroomsFromAny(v); out != nil {
		*s = *out
	}
	return nil
}

// BedroomsFromAny keeps strings as labels and arrays as lists; other shapes drop.
func BedroomsFromAny(v any) *BedroomSet {
	switch x := v.(type) {
	case string:
		return BedroomLabel(x)
	case []any:
		list := make([]Bedroom, 0, len(x))
		for _, it := range x {
			list = append(list, bedroomFromAny(it))
		}
		return BedroomList(list...)
	}
	return nil
}

// ---- points of interest ----

type POI struct {
	Name     LocalizedText
	Category string
	Lat      *float64
	Lon      *float64
	Distance string
	Extra    map[string]any
}

func (p POI) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["name"] = p.Name
	if p.Category != "" {
		out["category"] = p.Category
	} else {
		delete(out, "category")
	}
	putFloat(out, "lat", p.Lat)
	putFloat(out, "lon", p.Lon)
	putString(out, "distance", p.Distance)
	return json.Marshal(out)
}

func (p *POI) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*p = POIFromMap(m)
	return nil
}

// POIFromMap decodes a loose POI object; category is kept only when a string.
func POIFromMap(m map[string]any) POI {
	var p POI
	p.Name, _ = TextFromAny(m["name"])
	p.Category, _ = m["category"].(string)
	p.Lat = FloatFromAny(m["lat"])
	p.Lon = FloatFromAny(m["lon"])
	p.Distance, _ = m["distance"].(string)
	for k, v := range m {
		switch k {
		case "name", "category", "lat", "lon", "distance":
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	return p
}
