package usecases_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/usecases"
)

func testPlaces() *usecases.PlaceIndex {
	return usecases.NewPlaceIndex([]domain.Place{
		{Name: "Amsterdam", Region: "Noord-Holland"},
		{Name: "Amstelveen", Region: "Noord-Holland"},
		{Name: "Bergen op Zoom", Region: "Noord-Brabant"},
		{Name: "Den Bosch", Region: "Noord-Brabant"},
		{Name: "Zoetermeer", Region: "Zuid-Holland"},
		{Name: "  ", Region: "Nowhere"},
	})
}

func TestPlaceIndex_SuggestPrefixAndWordBoundary(t *testing.T) {
	idx := testPlaces()

	assert.Equal(t, []string{"Amsterdam (Noord-Holland)", "Amstelveen (Noord-Holland)"}, idx.Suggest("ams"))
	assert.Equal(t, []string{"Bergen op Zoom (Noord-Brabant)"}, idx.Suggest("ZOOM"))
	assert.Equal(t, []string{"Den Bosch (Noord-Brabant)"}, idx.Suggest("bos"))
	// "oet" is inside a word, not at a boundary.
	assert.Empty(t, idx.Suggest("oet"))
}

func TestPlaceIndex_SuggestTooShort(t *testing.T) {
	idx := testPlaces()
	assert.Empty(t, idx.Suggest("a"))
	assert.Empty(t, idx.Suggest(" "))
	assert.NotNil(t, idx.Suggest(""))
}

func TestPlaceIndex_SuggestCapsAtTen(t *testing.T) {
	var places []domain.Place
	for i := 0; i < 25; i++ {
		places = append(places, domain.Place{Name: fmt.Sprintf("Veld %d", i), Region: "Drenthe"})
	}
	idx := usecases.NewPlaceIndex(places)

	got := idx.Suggest("veld")
	require.Len(t, got, 10)
	assert.Equal(t, "Veld 0 (Drenthe)", got[0])
	assert.Equal(t, 25, idx.Len())
}

func TestPlaceIndex_Exact(t *testing.T) {
	idx := testPlaces()

	p, ok := idx.Exact("amsterdam")
	require.True(t, ok)
	assert.Equal(t, "Amsterdam", p.Name)

	_, ok = idx.Exact("Amster")
	assert.False(t, ok)
}

func TestStripRegion(t *testing.T) {
	assert.Equal(t, "Den Bosch", usecases.StripRegion("Den Bosch (Noord-Brabant)"))
	assert.Equal(t, "Utrecht", usecases.StripRegion(" Utrecht "))
	assert.Equal(t, "", usecases.StripRegion(""))
}
