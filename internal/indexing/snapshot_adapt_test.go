package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-search/prism/internal/version"
)

func TestStoreSnapshotRoundTrip(t *testing.T) {
	st := NewStore("/project")
	st.InsertOrReplaceFile("a.go", []byte("package a\n\nfunc Alpha() {}\n"))
	st.InsertOrReplaceFile("docs/b.md", []byte("# Beta heading\n"))

	snap := StoreToSnapshot(st)
	assert.Equal(t, version.SnapshotVersion, snap.Version)
	assert.Equal(t, 2, snap.FileCount)

	restored := StoreFromSnapshot(snap)
	restored.RLock()
	defer restored.RUnlock()

	assert.Equal(t, 2, restored.FileCount())
	assert.Equal(t, 3, restored.ChunkCount())

	rec, ok := restored.FileByPath("a.go")
	require.True(t, ok)
	assert.Equal(t, "go", rec.Language)
	assert.Equal(t, 3, rec.LineCount)
	assert.Zero(t, rec.FastHash, "fast hash is not persisted")

	st.RLock()
	orig, _ := st.FileByPath("a.go")
	st.RUnlock()
	assert.Equal(t, orig.Hash, rec.Hash, "canonical hash survives the round trip")

	// The inverted index is rebuilt, not persisted.
	assert.True(t, restored.HasTerm("alpha"))
	assert.True(t, restored.HasTerm("beta"))
	postings := restored.PostingsFor("alpha")
	require.Len(t, postings, 1)
	assert.Equal(t, int32(3), postings[0].LineNumber)
}

func TestStoreSnapshotRoundTrip_PostingsScored(t *testing.T) {
	st := NewStore("/project")
	st.InsertOrReplaceFile("a.go", []byte("short_term\n"))

	restored := StoreFromSnapshot(StoreToSnapshot(st))

	st.RLock()
	want := st.PostingsFor("short_term")[0].Score
	st.RUnlock()

	restored.RLock()
	defer restored.RUnlock()
	got := restored.PostingsFor("short_term")[0].Score
	assert.Equal(t, want, got, "rebuilt postings carry identical base scores")
}
