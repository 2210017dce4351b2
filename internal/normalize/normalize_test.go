package normalize_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imperium_gate/internal/domain"
	"imperium_gate/internal/normalize"
)

func TestNumber(t *testing.T) {
	cases := map[string]*float64{
		"AED 1,250,000": ptr(1250000),
		"850.5 sqft":    ptr(850.5),
		"":              nil,
		"TBA":           nil,
		"1.2.3":         nil,
	}
	for in, want := range cases {
		got := normalize.Number(in)
		if want == nil {
			assert.Nil(t, got, in)
			continue
		}
		require.NotNil(t, got, in)
		assert.Equal(t, *want, *got, in)
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, normalize.SplitList(" a | b,c / d ;; e "))
	assert.Empty(t, normalize.SplitList(" | , "))
}

func TestBedrooms(t *testing.T) {
	got := normalize.Bedrooms("Studio, 1BR, 2BR, 3BR")
	assert.Equal(t, []domain.Bedroom{domain.Studio(), domain.Rooms(1), domain.Rooms(2), domain.Rooms(3)}, got)

	assert.Equal(t, []domain.Bedroom{domain.Rooms(4)}, normalize.Bedrooms("penthouse | 4 bed"))
	assert.Empty(t, normalize.Bedrooms(""))
}

func TestPropertyTypes(t *testing.T) {
	got := normalize.PropertyTypes("apts, Flat | villa / TH; ph; mansion; Villa")
	assert.ElementsMatch(t, []string{"Apartment", "Villa", "Townhouse", "Penthouse", "Mansion"}, got)
}

var slugShape = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Emaar Beachfront":        "emaar-beachfront",
		"  Creek  Gate / Tower_2": "creek-gate-tower-2",
		"Café Résidence":          "cafe-residence",
		"burj-vista.json":         "burj-vista",
		"A & B -- Heights":        "a-b-heights",
		"--edge--":                "edge",
	}
	for in, want := range cases {
		got := normalize.Slug(in, "")
		assert.Equal(t, want, got, in)
		assert.Regexp(t, slugShape, got)
		assert.Equal(t, got, normalize.Slug(got, ""), "idempotent for %q", in)
	}
}

func TestSlug_Fallbacks(t *testing.T) {
	assert.Equal(t, "row-12", normalize.Slug("مشروع", "Row 12"))
	assert.Equal(t, "project", normalize.Slug("", ""))
	assert.Equal(t, "project", normalize.Slug("!!!", "???"))
}

func TestValid3DLink(t *testing.T) {
	assert.False(t, normalize.Valid3DLink("https://sobha.cloud/tour/x"))
	assert.False(t, normalize.Valid3DLink("https://SOBHA.cloud/tour/x"))
	assert.True(t, normalize.Valid3DLink("https://hartland2.sobha.cloud/tour/x"))
	assert.True(t, normalize.Valid3DLink("http://my.matterport.com/show/?m=abc"))
	assert.False(t, normalize.Valid3DLink("ftp://hartland2.sobha.cloud/tour"))
	assert.False(t, normalize.Valid3DLink("hartland2.sobha.cloud/tour"))
	assert.False(t, normalize.Valid3DLink("https://"))
	assert.False(t, normalize.Valid3DLink("https://exa mple.com/%zz"))
}

func TestTour3DLinks(t *testing.T) {
	got := normalize.Tour3DLinks("https://sobha.cloud/a | https://hartland2.sobha.cloud/b, not-a-link")
	assert.Equal(t, []string{"https://hartland2.sobha.cloud/b"}, got)
}

func TestHTTPLinksAndPDF(t *testing.T) {
	assert.Equal(t, []string{"https://youtu.be/x"}, normalize.HTTPLinks("youtube | https://youtu.be/x"))
	assert.Equal(t, "https://cdn.x/b.PDF?v=2", normalize.PDFLink(" https://cdn.x/b.PDF?v=2 "))
	assert.Equal(t, "", normalize.PDFLink("https://cdn.x/brochure"))
}

func TestDeveloper(t *testing.T) {
	cases := map[string]domain.Developer{
		"Emaar Properties": domain.DeveloperEmaar,
		"DAMAC":            domain.DeveloperDamac,
		" nakheel pjsc ":   domain.DeveloperNakheel,
		"Sobha Realty":     domain.DeveloperSobha,
		"Meraas":           domain.DeveloperUnknown,
		"":                 domain.DeveloperUnknown,
	}
	for in, want := range cases {
		got := normalize.Developer(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, want != domain.DeveloperUnknown, got.Valid(), in)
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Dubai Hills Estate", normalize.TitleCase("dubai_hills-estate"))
}

func ptr(f float64) *float64 { return &f }
