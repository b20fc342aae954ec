package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	packs := c.Packs()
	require.Len(t, packs, 2)

	small, ok := c.Get("pack_5")
	require.True(t, ok)
	assert.Equal(t, 5, small.Credits)
	assert.Equal(t, 299, small.AmountCents)
	assert.False(t, small.UnlocksNatal)

	natal, ok := c.Get("pack_10_natal")
	require.True(t, ok)
	assert.Equal(t, 10, natal.Credits)
	assert.True(t, natal.UnlocksNatal)
}

func TestGetUnknownPack(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	_, ok := c.Get("pack_missing")
	assert.False(t, ok)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	data := `[{"id":"pack_1","title":"One","description":"d","label":"1 reading","credits":1,"amount_cents":99}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	packs := c.Packs()
	require.Len(t, packs, 1)
	assert.Equal(t, "pack_1", packs[0].ID)
	_, ok := c.Get("pack_5")
	assert.False(t, ok, "file catalog replaces the built-in packs")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidPacks(t *testing.T) {
	cases := map[string]string{
		"empty ID":       `[{"id":"","credits":1,"amount_cents":1}]`,
		"zero credits":   `[{"id":"p","credits":0,"amount_cents":1}]`,
		"zero amount":    `[{"id":"p","credits":1,"amount_cents":0}]`,
		"duplicate IDs":  `[{"id":"p","credits":1,"amount_cents":1},{"id":"p","credits":2,"amount_cents":2}]`,
		"empty catalog":  `[]`,
		"malformed json": `[{`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "packs.json")
			require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestReloadKeepsPreviousPacksOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	good := `[{"id":"pack_1","title":"One","label":"1","credits":1,"amount_cents":99}]`
	require.NoError(t, os.WriteFile(path, []byte(good), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	require.Error(t, c.Reload())

	_, ok := c.Get("pack_1")
	assert.True(t, ok, "a failed reload must not drop the working catalog")
}

func TestWatcherReloadsOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	initial := `[{"id":"pack_1","title":"One","label":"1","credits":1,"amount_cents":99}]`
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(c)
	require.NoError(t, err)
	reloaded := make(chan struct{}, 1)
	w.SetReloadCallback(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	updated := `[{"id":"pack_2","title":"Two","label":"2","credits":2,"amount_cents":199}]`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("catalog watcher did not reload after file change")
	}

	_, ok := c.Get("pack_2")
	assert.True(t, ok)
}
