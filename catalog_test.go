package glb

import (
	"path/filepath"
	"testing"

	"github.com/bodgit/glb/internal/glbtest"
	"github.com/bodgit/glb/sniff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer c.Close()

	id, err := c.AddArchive("/a.glb", glbtest.Magic)
	require.NoError(t, err)

	again, err := c.AddArchive("/a.glb", glbtest.Magic)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	r := Record{
		Index:    3,
		Name:     "snd",
		Category: sniff.Wav,
		Length:   12,
		Digest:   0xfedcba9876543210,
		Output:   "/out/audio/3_snd.wav",
	}
	require.NoError(t, c.Record(id, r))
	// Replaces rather than duplicates
	require.NoError(t, c.Record(id, r))

	records, err := c.Entries("/a.glb")
	require.NoError(t, err)
	require.Len(t, records, 1)
	r.Archive = "/a.glb"
	assert.Equal(t, r, records[0])

	dup, err := c.FindByDigest(0xfedcba9876543210)
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, "/out/audio/3_snd.wav", dup.Output)

	dup, err = c.FindByDigest(1)
	require.NoError(t, err)
	assert.Nil(t, dup)

	records, err = c.Entries("/b.glb")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtractWithCatalog(t *testing.T) {
	dir := t.TempDir()
	file := writeArchive(t, dir, "test.glb",
		glbtest.File{Name: "palette", Data: testPalette},
		glbtest.File{Name: "pic", Data: glbtest.Raw(2, 2, []byte{1, 2, 3, 0})},
		glbtest.File{Name: "snd", Data: wave},
		glbtest.File{Name: "copy", Data: wave},
	)

	c, err := NewCatalog(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	defer c.Close()

	x := New(nil, WithOutput(filepath.Join(dir, "out")), WithCatalog(c))
	require.NoError(t, x.Extract(file))
	require.NoError(t, x.Extract(file))

	abs, err := filepath.Abs(file)
	require.NoError(t, err)

	records, err := c.Entries(abs)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, 1, records[0].Index)
	assert.Equal(t, sniff.Image, records[0].Category)
	assert.Equal(t, filepath.Join(x.OutputDir(file), "images", "1_pic.png"), records[0].Output)

	assert.Equal(t, sniff.Wav, records[1].Category)
	assert.Equal(t, int64(len(wave)), records[1].Length)
	assert.Equal(t, records[1].Digest, records[2].Digest)
}
