package ninja

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmcalc/internal"
	"farmcalc/internal/config"
)

type fakeGetter struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeGetter) Get(_ context.Context, url, accept string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	for suffix := range f.fail {
		if strings.HasSuffix(url, suffix) {
			return nil, errors.New("boom")
		}
	}
	return []byte("<html>" + url + "</html>"), nil
}

func testConfig(sections ...string) config.Config {
	return config.Config{
		NinjaBaseURL:     "https://poe.example/",
		League:           "standard",
		NinjaSections:    sections,
		FetchConcurrency: 2,
	}
}

func TestFetchKeepsSectionOrder(t *testing.T) {
	getter := &fakeGetter{}
	feeds, err := NewConnector(getter, testConfig("currency", "runes", "omens")).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, feeds, 3)
	assert.Equal(t, []string{"currency", "runes", "omens"}, []string{feeds[0].Section, feeds[1].Section, feeds[2].Section})
	assert.Equal(t, "https://poe.example/poe2/economy/standard/runes", feeds[1].Source)
	assert.Equal(t, internal.FormatEconomyHTML, feeds[1].Format)
	assert.Len(t, getter.calls, 3)
}

func TestFetchSkipsFailedSections(t *testing.T) {
	getter := &fakeGetter{fail: map[string]bool{"/runes": true}}
	feeds, err := NewConnector(getter, testConfig("currency", "runes")).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "currency", feeds[0].Section)
}

func TestFetchFailsWhenEverySectionFails(t *testing.T) {
	getter := &fakeGetter{fail: map[string]bool{"/currency": true, "/runes": true}}
	_, err := NewConnector(getter, testConfig("currency", "runes")).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 economy sections failed")
}

func TestFetchWithoutSections(t *testing.T) {
	_, err := NewConnector(&fakeGetter{}, testConfig()).Fetch(context.Background())
	assert.Error(t, err)
}
