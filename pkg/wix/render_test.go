package wix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderMainWxs(t *testing.T) {
	t.Parallel()

	data := NewManifestData("Vroom", "1.2.3", "Acme Corp", "com.acme.vroom")

	out, err := RenderMainWxs(data)
	require.NoError(t, err)

	rendered := string(out)
	require.Contains(t, rendered, `Name="Vroom"`)
	require.Contains(t, rendered, `Version="1.2.3"`)
	require.Contains(t, rendered, `Manufacturer="Acme Corp"`)
	require.Contains(t, rendered, `UpgradeCode="`+data.UpgradeCode+`"`)
	require.Contains(t, rendered, `ComponentGroupRef Id="AppFiles"`)
	require.Contains(t, rendered, `Directory Id="APPLICATIONFOLDER"`)
	require.NotContains(t, rendered, "{{")
}

func TestManifestCodesAreStable(t *testing.T) {
	t.Parallel()

	first := NewManifestData("Vroom", "1.2.3", "Acme Corp", "com.acme.vroom")
	second := NewManifestData("Vroom", "1.2.3", "Acme Corp", "com.acme.vroom")
	require.Equal(t, first, second)

	// The upgrade code identifies the product line, so it must
	// survive version bumps; the product code must not.
	bumped := NewManifestData("Vroom", "1.2.4", "Acme Corp", "com.acme.vroom")
	require.Equal(t, first.UpgradeCode, bumped.UpgradeCode)
	require.NotEqual(t, first.ProductCode, bumped.ProductCode)
}

func TestRenderManifestMissingKey(t *testing.T) {
	t.Parallel()

	out, err := RenderManifest(`<Product Name="{{.Bogus}}" />`, ManifestData{ProductName: "Vroom"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Bogus")
	require.Nil(t, out)
}

func TestRenderManifestMalformed(t *testing.T) {
	t.Parallel()

	out, err := RenderManifest(`<Product Name="{{.ProductName" />`, ManifestData{ProductName: "Vroom"})
	require.Error(t, err)
	require.Nil(t, out)
}
