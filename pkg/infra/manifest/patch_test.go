package manifest_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"github.com/m-mizutani/pushdeploy/pkg/infra/manifest"
	"gopkg.in/yaml.v3"
)

const values = `# managed by pushdeploy
app-template:
  controllers:
    main:
      containers:
        main:
          image:
            repository: registry.local:5000/myapp   # pinned registry
            tag: 0123abcd
            pullPolicy: IfNotPresent
  service:
    main:
      ports:
        http:
          port: 8080
`

func readTag(t *testing.T, data []byte) any {
	t.Helper()
	var v struct {
		AppTemplate struct {
			Controllers struct {
				Main struct {
					Containers struct {
						Main struct {
							Image map[string]any `yaml:"image"`
						} `yaml:"main"`
					} `yaml:"containers"`
				} `yaml:"main"`
			} `yaml:"controllers"`
		} `yaml:"app-template"`
	}
	gt.NoError(t, yaml.Unmarshal(data, &v))
	return v.AppTemplate.Controllers.Main.Containers.Main.Image["tag"]
}

func TestSetImageTag_OnlyTagChanges(t *testing.T) {
	tag := "89abcdef0123456789abcdef0123456789abcdef"
	result, err := manifest.SetImageTag([]byte(values), tag)
	gt.NoError(t, err)

	gt.Equal(t, result.Previous, "0123abcd")
	gt.Equal(t, result.Current, tag)
	gt.True(t, result.Changed())

	expected := strings.Replace(values, "tag: 0123abcd", "tag: "+tag, 1)
	gt.Equal(t, string(result.Data), expected)
}

func TestSetImageTag_SameTag(t *testing.T) {
	result, err := manifest.SetImageTag([]byte(values), "0123abcd")
	gt.NoError(t, err)
	gt.False(t, result.Changed())
	gt.Equal(t, string(result.Data), values)
}

func TestSetImageTag_NumericTagIsQuoted(t *testing.T) {
	tag := "1234567"
	result, err := manifest.SetImageTag([]byte(values), tag)
	gt.NoError(t, err)
	gt.String(t, string(result.Data)).Contains(`tag: "1234567"`)
	gt.Equal(t, readTag(t, result.Data), any(tag))
}

func TestSetImageTag_KeepsQuoteStyle(t *testing.T) {
	testCases := []struct {
		name     string
		leaf     string
		expected string
	}{
		{name: "double quoted", leaf: `tag: "old"`, expected: `tag: "newtag"`},
		{name: "single quoted", leaf: `tag: 'old'`, expected: `tag: 'newtag'`},
		{name: "trailing comment", leaf: `tag: old # current`, expected: `tag: newtag # current`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := strings.Replace(values, "tag: 0123abcd", tc.leaf, 1)
			result, err := manifest.SetImageTag([]byte(src), "newtag")
			gt.NoError(t, err)
			gt.Equal(t, result.Previous, "old")
			gt.Equal(t, string(result.Data), strings.Replace(src, tc.leaf, tc.expected, 1))
		})
	}
}

func TestSetImageTag_MissingPath(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{
			name: "no image block",
			src:  "app-template:\n  controllers:\n    main:\n      containers:\n        main: {}\n",
		},
		{
			name: "no tag key",
			src:  "app-template:\n  controllers:\n    main:\n      containers:\n        main:\n          image:\n            repository: x\n",
		},
		{
			name: "unrelated document",
			src:  "replicaCount: 1\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := manifest.SetImageTag([]byte(tc.src), "abc")
			gt.Error(t, err)
			gt.True(t, goerr.HasTag(err, types.ErrTagManifestPath))
		})
	}
}

func TestSetImageTag_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "broken syntax", src: "app-template: [unclosed\n"},
		{name: "scalar document", src: "just a string\n"},
		{name: "image is not a values block", src: "app-template:\n  controllers:\n    main:\n      containers:\n        main:\n          image:\n            repository: [a, b]\n            tag: x\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := manifest.SetImageTag([]byte(tc.src), "abc")
			gt.Error(t, err)
			gt.True(t, goerr.HasTag(err, types.ErrTagManifestParse))
		})
	}
}

func TestPatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "values.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(values), 0600))

	result, err := manifest.PatchFile(path, "feedface")
	gt.NoError(t, err)
	gt.True(t, result.Changed())

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Equal(t, readTag(t, data), any("feedface"))

	info, err := os.Stat(path)
	gt.NoError(t, err)
	gt.Equal(t, info.Mode().Perm(), os.FileMode(0600))

	// Second run with the same tag is a no-op
	result, err = manifest.PatchFile(path, "feedface")
	gt.NoError(t, err)
	gt.False(t, result.Changed())
}

func TestPatchFile_NotFound(t *testing.T) {
	_, err := manifest.PatchFile(filepath.Join(t.TempDir(), "values.yaml"), "abc")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagManifestNotFound))
}

func TestPatchFile_KeepsErrorKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	gt.NoError(t, os.WriteFile(path, []byte("replicaCount: 1\n"), 0644))

	_, err := manifest.PatchFile(path, "abc")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagManifestPath))

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Equal(t, string(data), "replicaCount: 1\n")
}

func TestPatcher_SetImageTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	src := strings.Replace(values, "tag: 0123abcd", "tag: 20240101", 1)
	gt.NoError(t, os.WriteFile(path, []byte(src), 0644))

	change, err := manifest.NewPatcher().SetImageTag(context.Background(), path, "feedface")
	gt.NoError(t, err)
	gt.Equal(t, *change, model.TagChange{Previous: "20240101", Current: "feedface"})
	gt.True(t, change.Changed())

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Equal(t, readTag(t, data), any("feedface"))

	change, err = manifest.NewPatcher().SetImageTag(context.Background(), path, "feedface")
	gt.NoError(t, err)
	gt.False(t, change.Changed())
}

func TestPatcher_SetImageTag_NotFound(t *testing.T) {
	_, err := manifest.NewPatcher().SetImageTag(context.Background(), filepath.Join(t.TempDir(), "values.yaml"), "abc")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagManifestNotFound))
}
