package bucket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery/internal/bucket"
	"gallery/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want bucket.Bucket
	}{
		{"hero", []string{"Hero"}, bucket.HeroBucket()},
		{"hero_wins_over_category", []string{"Hero", "Bridal"}, bucket.HeroBucket()},
		{"hero_case_insensitive", []string{"hero", "Portfolio", "Guest"}, bucket.HeroBucket()},
		{"portfolio_bridal", []string{"Portfolio", "Bridal"}, bucket.PortfolioBucket(bucket.Bridal)},
		{"enumeration_order", []string{"Portfolio", "Festival", "Guest"}, bucket.PortfolioBucket(bucket.Guest)},
		{"category_without_portfolio", []string{"Festival"}, bucket.PortfolioBucket(bucket.Festival)},
		{"portfolio_only", []string{"Portfolio"}, bucket.Bucket{Kind: bucket.Unclassified}},
		{"unknown", []string{"General"}, bucket.Bucket{Kind: bucket.Unclassified}},
		{"empty", nil, bucket.Bucket{Kind: bucket.Unclassified}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bucket.Resolve(tt.tags))
		})
	}
}

func TestBucket_Label(t *testing.T) {
	assert.Equal(t, "Hero", bucket.HeroBucket().Label())
	assert.Equal(t, "Guest", bucket.PortfolioBucket(bucket.Guest).Label())
	assert.Equal(t, bucket.UniqueLabel, bucket.Resolve([]string{"Portfolio"}).Label())
}

func TestBucket_Tags(t *testing.T) {
	tags, err := bucket.HeroBucket().Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"Hero"}, tags)

	tags, err = bucket.PortfolioBucket(bucket.Festival).Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"Portfolio", "Festival"}, tags)

	_, err = bucket.Bucket{Kind: bucket.Unclassified}.Tags()
	assert.Error(t, err)

	_, err = bucket.PortfolioBucket("Birthday").Tags()
	assert.Error(t, err)
}

func TestBucket_TagsCanonicalCategory(t *testing.T) {
	tests := []struct {
		category bucket.Category
		want     []string
	}{
		{"bridal", []string{"Portfolio", "Bridal"}},
		{"Bridal ", []string{"Portfolio", "Bridal"}},
		{"FESTIVAL", []string{"Portfolio", "Festival"}},
		{"gUeSt", []string{"Portfolio", "Guest"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			tags, err := bucket.PortfolioBucket(tt.category).Tags()
			require.NoError(t, err)
			assert.Equal(t, tt.want, tags)
		})
	}
}

func TestTagsRoundTrip(t *testing.T) {
	for _, b := range []bucket.Bucket{
		bucket.HeroBucket(),
		bucket.PortfolioBucket(bucket.Bridal),
		bucket.PortfolioBucket(bucket.Guest),
		bucket.PortfolioBucket(bucket.Festival),
	} {
		tags, err := b.Tags()
		require.NoError(t, err)
		assert.Equal(t, b, bucket.Resolve(tags), b.String())
	}
}

func TestParse(t *testing.T) {
	b, err := bucket.Parse("Hero", "Bridal")
	require.NoError(t, err)
	assert.Equal(t, bucket.HeroBucket(), b)

	b, err = bucket.Parse("portfolio", "guest")
	require.NoError(t, err)
	assert.Equal(t, bucket.PortfolioBucket(bucket.Guest), b)

	_, err = bucket.Parse("portfolio", "")
	assert.Error(t, err)

	_, err = bucket.Parse("banner", "")
	assert.Error(t, err)
}

func TestAspects(t *testing.T) {
	aspects := bucket.DefaultAspects()

	a, ok := aspects.For(bucket.HeroBucket())
	require.True(t, ok)
	assert.Equal(t, models.Aspect{Width: 1, Height: 1}, a)

	a, ok = aspects.For(bucket.PortfolioBucket(bucket.Bridal))
	require.True(t, ok)
	assert.Equal(t, models.Aspect{Width: 3, Height: 4}, a)

	_, ok = aspects.For(bucket.Bucket{})
	assert.False(t, ok)
}

func TestAspectsFromConfig(t *testing.T) {
	aspects, err := bucket.AspectsFromConfig(map[string]models.Aspect{
		"Hero": {Width: 16, Height: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Aspect{Width: 16, Height: 9}, aspects[bucket.Hero])
	assert.Equal(t, models.Aspect{Width: 3, Height: 4}, aspects[bucket.Portfolio])

	_, err = bucket.AspectsFromConfig(map[string]models.Aspect{"banner": {Width: 1, Height: 1}})
	assert.Error(t, err)

	_, err = bucket.AspectsFromConfig(map[string]models.Aspect{"portfolio": {Width: 0, Height: 4}})
	assert.Error(t, err)
}
