package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairhub/pricing-engine/internal/model"
)

func candidate(id string, years int, loc *model.Location) *model.CandidateProvider {
	return &model.CandidateProvider{ProviderID: id, YearsExperience: years, Location: loc}
}

func ids(cs []*model.CandidateProvider) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ProviderID
	}
	return out
}

func TestHaversine(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Location
		want float64
	}{
		{"same point", model.Location{Lat: 12.9, Lng: 77.6}, model.Location{Lat: 12.9, Lng: 77.6}, 0},
		{"one degree of latitude", model.Location{Lat: 0, Lng: 0}, model.Location{Lat: 1, Lng: 0}, 111.19},
		{"bengaluru pair", model.Location{Lat: 12.9, Lng: 77.6}, model.Location{Lat: 13.1, Lng: 77.8}, 31.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Haversine(tt.a, tt.b), 0.1)
		})
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := model.Location{Lat: 40.7128, Lng: -74.0060}
	b := model.Location{Lat: 51.5074, Lng: -0.1278}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestFilter_ExcludesBeyondRadius(t *testing.T) {
	origin := &model.Location{Lat: 12.9, Lng: 77.6}
	items := []*model.CandidateProvider{
		candidate("far", 10, &model.Location{Lat: 13.1, Lng: 77.8}),
		candidate("near", 2, &model.Location{Lat: 12.91, Lng: 77.61}),
		candidate("nowhere", 5, nil),
	}

	out := Filter(origin, items, 10)
	require.Equal(t, []string{"near"}, ids(out))
	assert.Greater(t, out[0].DistanceKm, 0.0)
	assert.LessOrEqual(t, out[0].DistanceKm, 10.0)
}

func TestFilter_NilOriginKeepsAll(t *testing.T) {
	items := []*model.CandidateProvider{
		candidate("a", 1, &model.Location{Lat: 13.1, Lng: 77.8}),
		candidate("b", 2, nil),
	}
	items[0].DistanceKm = 99

	out := Filter(nil, items, 10)
	assert.Equal(t, []string{"a", "b"}, ids(out))
	for _, c := range out {
		assert.Zero(t, c.DistanceKm)
	}
}

func TestFilter_DefaultRadius(t *testing.T) {
	origin := &model.Location{Lat: 0, Lng: 0}
	items := []*model.CandidateProvider{
		candidate("9km", 0, &model.Location{Lat: 0.08, Lng: 0}),
		candidate("12km", 0, &model.Location{Lat: 0.11, Lng: 0}),
	}
	assert.Equal(t, []string{"9km"}, ids(Filter(origin, items, 0)))
}

func TestRank_Distance(t *testing.T) {
	items := []*model.CandidateProvider{
		{ProviderID: "c", DistanceKm: 3},
		{ProviderID: "a", DistanceKm: 1},
		{ProviderID: "b1", DistanceKm: 2},
		{ProviderID: "b2", DistanceKm: 2},
	}
	Rank(items, SortDistance)
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, ids(items))
}

func TestRank_ExperienceStable(t *testing.T) {
	items := []*model.CandidateProvider{
		candidate("junior", 1, nil),
		candidate("senior1", 9, nil),
		candidate("mid", 4, nil),
		candidate("senior2", 9, nil),
	}
	Rank(items, SortExperience)
	assert.Equal(t, []string{"senior1", "senior2", "mid", "junior"}, ids(items))
}

func TestFilterAndRank(t *testing.T) {
	origin := &model.Location{Lat: 12.9716, Lng: 77.5946}
	items := []*model.CandidateProvider{
		candidate("two", 3, &model.Location{Lat: 12.99, Lng: 77.60}),
		candidate("one", 8, &model.Location{Lat: 12.975, Lng: 77.595}),
		candidate("out", 20, &model.Location{Lat: 13.2, Lng: 77.7}),
	}

	out := FilterAndRank(origin, items, DefaultRadiusKm, SortDistance)
	assert.Equal(t, []string{"one", "two"}, ids(out))
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortDistance, k)

	k, err = ParseSortKey(" Experience ")
	require.NoError(t, err)
	assert.Equal(t, SortExperience, k)

	_, err = ParseSortKey("price")
	assert.Error(t, err)
}
