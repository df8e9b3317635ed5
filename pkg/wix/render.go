package wix

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"text/template"

	"github.com/pkg/errors"
)

// Defaults shared between the rendered manifest and the heat
// invocation. They must agree, or light fails to resolve the
// harvested component group.
const (
	DefaultComponentGroup = "AppFiles"
	DefaultDirectoryRef   = "APPLICATIONFOLDER"
)

// mainWxsTemplate is the Installer.wxs manifest that candle
// compiles. We use go's template variables rather than wix's
// internal variable system so the intermediate xml file is
// inspectable in the build dir.
const mainWxsTemplate = `<?xml version="1.0" encoding="utf-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
  <Product Id="{{.ProductCode}}"
           Name="{{.ProductName}}"
           Language="1033"
           Version="{{.Version}}"
           Manufacturer="{{.Manufacturer}}"
           UpgradeCode="{{.UpgradeCode}}">
    <Package Compressed="yes" InstallerVersion="450" InstallScope="perMachine" />
    <MediaTemplate EmbedCab="yes" />
    <MajorUpgrade DowngradeErrorMessage="A newer version of {{.ProductName}} is already installed." />
    <Directory Id="TARGETDIR" Name="SourceDir">
      <Directory Id="ProgramFiles64Folder">
        <Directory Id="{{.DirectoryRef}}" Name="{{.ProductName}}" />
      </Directory>
    </Directory>
    <Feature Id="MainFeature" Title="{{.ProductName}}" Level="1">
      <ComponentGroupRef Id="{{.ComponentGroup}}" />
    </Feature>
  </Product>
</Wix>
`

// ManifestData is the substitution context for the manifest
// template. Fields are typed and named, so a template referencing an
// absent key fails at render time instead of silently emitting
// nothing.
type ManifestData struct {
	ProductName    string
	Version        string
	Manufacturer   string
	ComponentGroup string
	DirectoryRef   string
	UpgradeCode    string
	ProductCode    string
}

// NewManifestData fills in a ManifestData, deriving the MSI codes
// from the identifier and version so they are stable across builds
// of the same product.
func NewManifestData(name, version, manufacturer, identifier string) ManifestData {
	return ManifestData{
		ProductName:    name,
		Version:        version,
		Manufacturer:   manufacturer,
		ComponentGroup: DefaultComponentGroup,
		DirectoryRef:   DefaultDirectoryRef,
		UpgradeCode:    generateMicrosoftProductCode(identifier),
		ProductCode:    generateMicrosoftProductCode(identifier, version),
	}
}

// RenderManifest performs the placeholder substitution producing the
// Installer.wxs document. It renders into a buffer, so a failed
// render writes nothing anywhere.
func RenderManifest(templateSource string, data ManifestData) ([]byte, error) {
	tmpl, err := template.New("Installer.wxs").Option("missingkey=error").Parse(templateSource)
	if err != nil {
		return nil, errors.Wrap(err, "parsing manifest template")
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "Installer.wxs", data); err != nil {
		return nil, errors.Wrap(err, "executing manifest template")
	}

	return buf.Bytes(), nil
}

// RenderMainWxs renders the built-in manifest template.
func RenderMainWxs(data ManifestData) ([]byte, error) {
	return RenderManifest(mainWxsTemplate, data)
}

// generateMicrosoftProductCode is a stable guid that is used to
// identify the product / package / version. We need to either store
// them, or generate them in a predictable fashion based on a set of
// inputs. See
// https://docs.microsoft.com/en-us/windows/desktop/Msi/productcode
func generateMicrosoftProductCode(ident1 string, identN ...string) string {
	h := md5.New()
	io.WriteString(h, ident1)
	for _, s := range identN {
		io.WriteString(h, s)
	}

	hash := h.Sum(nil)

	return fmt.Sprintf("%X-%X-%X-%X-%X", hash[0:4], hash[4:6], hash[6:8], hash[8:10], hash[10:16])
}
