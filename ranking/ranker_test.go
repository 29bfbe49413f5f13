package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pinmatch/core"
)

func allFlagSets() []Flags {
	sets := make([]Flags, 0, 16)
	for mask := 0; mask < 16; mask++ {
		sets = append(sets, Flags{
			Pincode:    mask&1 != 0,
			OfficeName: mask&2 != 0,
			District:   mask&4 != 0,
			State:      mask&8 != 0,
		})
	}
	return sets
}

func TestFuse_Bounds(t *testing.T) {
	b := DefaultBoosts()
	raws := []float32{-1, -0.5, 0, 0.01, 0.3, 0.5, 0.79, 0.8, 0.85, 0.95, 0.999, 1}

	for _, raw := range raws {
		for _, flags := range allFlagSets() {
			fused := b.Fuse(raw, flags)
			assert.GreaterOrEqual(t, fused, raw, "raw=%v flags=%+v", raw, flags)
			assert.LessOrEqual(t, fused, float32(1.0), "raw=%v flags=%+v", raw, flags)
		}
	}
}

func TestFuse_RawAboveOne(t *testing.T) {
	b := DefaultBoosts()
	for _, flags := range allFlagSets() {
		assert.Equal(t, float32(1.0), b.Fuse(1.0000001, flags), "flags=%+v", flags)
	}
}

func TestFuse_PincodeOnly(t *testing.T) {
	b := DefaultBoosts()
	for _, raw := range []float32{0, 0.42, 0.8, 0.9, 1} {
		fused := b.Fuse(raw, Flags{Pincode: true})
		assert.Equal(t, min(float32(1.0), raw+0.20), fused)
	}
	assert.Greater(t, b.Fuse(0.42, Flags{Pincode: true}), float32(0.42))
}

func TestFuse_SequentialClamp(t *testing.T) {
	b := DefaultBoosts()

	assert.InDelta(t, 0.5, b.Fuse(0.5, Flags{}), 1e-6)
	assert.InDelta(t, 0.85, b.Fuse(0.5, Flags{Pincode: true, OfficeName: true}), 1e-6)
	assert.InDelta(t, 1.0, b.Fuse(0.5, Flags{Pincode: true, OfficeName: true, District: true, State: true}), 1e-6)
	assert.Equal(t, float32(1.0), b.Fuse(0.9, Flags{Pincode: true, State: true}))
}

func TestRanker_Flags(t *testing.T) {
	r := New()
	rec := &core.Record{OfficeName: "Koramangala SO", Pincode: "560034", District: "Bangalore", State: "Karnataka"}

	tests := []struct {
		name    string
		query   string
		pincode string
		want    Flags
	}{
		{"nothing", "connaught place", "", Flags{}},
		{"pincode only", "somewhere 560034", "560034", Flags{Pincode: true}},
		{"wrong pincode", "koramangala 560035", "560035", Flags{OfficeName: true}},
		{"full office name", "near koramangala so bangalore", "", Flags{OfficeName: true, District: true}},
		{"base office name", "koramangala bangalore 560034", "560034", Flags{Pincode: true, OfficeName: true, District: true}},
		{"state", "karnataka", "", Flags{State: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Flags(tt.query, tt.pincode, rec))
		})
	}
}

func TestRanker_Flags_EmptyFieldsNeverBoost(t *testing.T) {
	r := New()
	rec := &core.Record{OfficeName: "Asifabad B.O", Pincode: "504293"}

	flags := r.Flags("anything at all", "", rec)
	assert.False(t, flags.District)
	assert.False(t, flags.State)
	assert.False(t, flags.Pincode, "empty query pincode never matches")
}

func TestRanker_Rank_ReordersByConfidence(t *testing.T) {
	r := New()
	kothimir := &core.Record{OfficeName: "Kothimir SO", Pincode: "504273", District: "Asifabad", State: "Telangana"}
	koramangala := &core.Record{OfficeName: "Koramangala SO", Pincode: "560034", District: "Bangalore", State: "Karnataka"}
	connaught := &core.Record{OfficeName: "Connaught Place HO", Pincode: "110001", District: "New Delhi", State: "Delhi"}

	pool := []Scored{
		{Record: kothimir, Row: 0, Similarity: 0.70},
		{Record: connaught, Row: 2, Similarity: 0.65},
		{Record: koramangala, Row: 1, Similarity: 0.60},
	}

	ranked := r.Rank("koramangala bangalore 560034", "560034", pool)
	require.Len(t, ranked, 3)

	top := ranked[0]
	assert.Equal(t, koramangala, top.Record)
	assert.Equal(t, 2, top.SimilarityRank)
	assert.True(t, top.Flags.Pincode)
	assert.True(t, top.Flags.OfficeName)
	assert.Equal(t, DefaultBoosts().Fuse(0.60, top.Flags), top.Confidence)
	assert.InDelta(t, 1.0, top.Confidence, 1e-6)
	assert.Equal(t, float32(0.60), top.Similarity)
	assert.Equal(t, []string{"560034", "bangalore", "koramangala"}, top.MatchedTokens)

	assert.Equal(t, kothimir, ranked[1].Record)
	assert.Equal(t, connaught, ranked[2].Record)
	assert.Empty(t, ranked[2].MatchedTokens)
}

func TestRanker_Rank_TiesKeepRetrievalOrder(t *testing.T) {
	r := New()
	a := &core.Record{OfficeName: "Alpha", Pincode: "111111"}
	b := &core.Record{OfficeName: "Beta", Pincode: "222222"}
	c := &core.Record{OfficeName: "Gamma", Pincode: "333333"}

	pool := []Scored{
		{Record: a, Row: 5, Similarity: 0.5},
		{Record: b, Row: 1, Similarity: 0.5},
		{Record: c, Row: 9, Similarity: 0.5},
	}

	ranked := r.Rank("unrelated", "", pool)
	require.Len(t, ranked, 3)
	assert.Equal(t, []*core.Record{a, b, c}, []*core.Record{ranked[0].Record, ranked[1].Record, ranked[2].Record})
}

func TestRanker_Rank_Empty(t *testing.T) {
	assert.Empty(t, New().Rank("query", "", nil))
}

func TestRanker_WithBoosts(t *testing.T) {
	r := New(WithBoosts(Boosts{Pincode: 0.5}))
	assert.Equal(t, Boosts{Pincode: 0.5}, r.Boosts())

	rec := &core.Record{OfficeName: "X", Pincode: "560034", District: "Bangalore"}
	ranked := r.Rank("x 560034 bangalore", "560034", []Scored{{Record: rec, Similarity: 0.3}})
	require.Len(t, ranked, 1)
	assert.InDelta(t, 0.8, ranked[0].Confidence, 1e-6)
}
