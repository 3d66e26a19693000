package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLocator(t *testing.T) {
	var l *Locator
	assert.Equal(t, "", l.Country("81.2.69.142"))
	assert.NoError(t, l.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	assert.Error(t, err)
}

func TestOpenGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("not a maxmind database"), 0o600))
	_, err := Open(path)
	assert.Error(t, err)
}

// testdata/GeoIP2-Country-Test.mmdb maps 81.2.69.0/24 to GB and
// 89.160.20.0/24 to SE.
func TestCountry(t *testing.T) {
	l, err := Open(filepath.Join("testdata", "GeoIP2-Country-Test.mmdb"))
	require.NoError(t, err)
	defer l.Close()

	cases := map[string]string{
		"81.2.69.142":        "GB",
		"89.160.20.112":      "SE",
		"::ffff:81.2.69.142": "GB",
		"192.0.2.1":          "",
		"2001:db8::1":        "",
		"not-an-ip":          "",
	}
	for host, want := range cases {
		assert.Equal(t, want, l.Country(host), host)
	}
}
