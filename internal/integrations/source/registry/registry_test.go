package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stefanobandi/manovre-portuali-Trieste/config"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/fake"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/oilportal"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/tmthtml"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/normalize"
)

func TestRules_OverridesBuiltin(t *testing.T) {
	rules, err := Rules([]config.SourceConfig{
		{ID: normalize.SourceTMT, Kind: config.SourceKindHTML, Label: "Molo VII"},
		{ID: normalize.SourceSIOT, Kind: config.SourceKindPortal, Columns: []config.ColumnConfig{
			{Raw: "Nave", Field: "vessel"},
			{Raw: "Arrivo", Field: "eta"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "Molo VII", rules[0].Label)
	require.NotEmpty(t, rules[0].Columns)
	require.Equal(t, "SIOT", rules[1].Label)
	require.Len(t, rules[1].Columns, 2)
	require.NotEmpty(t, rules[1].YearlessLayouts)
}

func TestRules_CustomSourceNeedsColumns(t *testing.T) {
	_, err := Rules([]config.SourceConfig{{ID: "adriafer", Kind: config.SourceKindFake}})
	require.Error(t, err)

	rules, err := Rules([]config.SourceConfig{{ID: "adriafer", Kind: config.SourceKindFake, Columns: []config.ColumnConfig{
		{Raw: "Vessel", Field: "Vessel"},
	}}})
	require.NoError(t, err)
	require.Equal(t, "ADRIAFER", rules[0].Label)
}

func TestFetchers_ByKind(t *testing.T) {
	fs, err := Fetchers([]config.SourceConfig{
		{ID: "tmt", Kind: config.SourceKindHTML, URL: "http://x"},
		{ID: "siot", Kind: config.SourceKindPortal, LoginURL: "http://x/login", ExportURL: "http://x/export", Delimiter: ","},
		{ID: "demo", Kind: config.SourceKindFake},
	}, time.Now)
	require.NoError(t, err)
	require.Len(t, fs, 3)
	require.IsType(t, &tmthtml.Client{}, fs[0])
	require.IsType(t, &oilportal.Client{}, fs[1])
	require.IsType(t, &fake.Client{}, fs[2])
	require.Equal(t, "demo", fs[2].ID())

	_, err = Fetchers([]config.SourceConfig{{ID: "x", Kind: "ftp"}}, time.Now)
	require.Error(t, err)
}

func TestBuild_DefaultsToEmulatedSources(t *testing.T) {
	fs, n, err := Build(nil, time.UTC)
	require.NoError(t, err)
	require.Len(t, fs, 2)
	require.Equal(t, "TMT", n.Label(normalize.SourceTMT))
	require.Equal(t, "SIOT", n.Label(normalize.SourceSIOT))
}
