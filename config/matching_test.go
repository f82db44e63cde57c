package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchingValidates(t *testing.T) {
	m := DefaultMatching()
	require.NoError(t, m.Validate())

	assert.Equal(t, 85.0, m.MatchThreshold)
	assert.Equal(t, 5.0, m.PriceChangeThreshold)
	assert.Equal(t, "established", m.TieBreak)
	assert.NotEmpty(t, m.Brands)
	assert.NotEmpty(t, m.Sites)
}

func TestLoadMatchingEmptyPathReturnsDefaults(t *testing.T) {
	m, err := LoadMatching("")
	require.NoError(t, err)
	assert.Equal(t, 85.0, m.MatchThreshold)
}

func TestLoadMatchingOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matching.yaml")
	require.NoError(t, os.WriteFile(path, []byte("match_threshold: 90\ntie_break: newest\n"), 0o644))

	m, err := LoadMatching(path)
	require.NoError(t, err)

	assert.Equal(t, 90.0, m.MatchThreshold)
	assert.Equal(t, "newest", m.TieBreak)
	// untouched fields keep their defaults
	assert.Equal(t, 5.0, m.PriceChangeThreshold)
	assert.NotEmpty(t, m.StopWords)
}

func TestLoadMatchingRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matching.yaml")
	require.NoError(t, os.WriteFile(path, []byte("match_threshold: 0\n"), 0o644))

	_, err := LoadMatching(path)
	assert.Error(t, err)
}

func TestLoadMatchingMissingFile(t *testing.T) {
	_, err := LoadMatching("/nonexistent/matching.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadTieBreak(t *testing.T) {
	m := DefaultMatching()
	m.TieBreak = "oldest"
	assert.Error(t, m.Validate())
}

func TestValidateRejectsBadSiteRole(t *testing.T) {
	m := DefaultMatching()
	m.Sites = append(m.Sites, SiteConfig{Name: "x", Role: "observer"})
	assert.Error(t, m.Validate())
}

func TestValidateRejectsBadSKUPattern(t *testing.T) {
	m := DefaultMatching()
	m.SKUPatterns = append(m.SKUPatterns, "([")
	assert.Error(t, m.Validate())
}

func TestSiteRoles(t *testing.T) {
	roles := DefaultMatching().SiteRoles()
	assert.Equal(t, "own", roles["horecamark"])
	assert.Equal(t, "competitor", roles["cafemarkt"])
}
