package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
)

func TestPrintSummary(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	local := model.NewLocalImage("blog", "abc123")
	remote := local.WithRegistry("registry.example.com")

	t.Run("full run", func(t *testing.T) {
		var buf bytes.Buffer
		printSummary(&buf, &model.PipelineResult{
			Repository:  "blog",
			Variant:     model.BuildVariantDockerfile,
			LocalImage:  &local,
			RemoteImage: &remote,
			Committed:   true,
			Notified:    true,
		}, nil)

		out := buf.String()
		gt.String(t, out).Contains("✓ built blog:abc123 (dockerfile)")
		gt.String(t, out).Contains("✓ pushed registry.example.com/blog:abc123")
		gt.String(t, out).Contains("✓ updated GitOps manifest")
		gt.String(t, out).Contains("✓ requested sync")
		gt.False(t, strings.Contains(out, "stopped"))
	})

	t.Run("skipped push", func(t *testing.T) {
		var buf bytes.Buffer
		result := &model.PipelineResult{
			Repository: "blog",
			Variant:    model.BuildVariantNixpacks,
			LocalImage: &local,
		}
		result.Skip(model.StagePush, "REGISTRY_HOST is not set")
		printSummary(&buf, result, nil)

		gt.String(t, buf.String()).Contains("- stopped before push: REGISTRY_HOST is not set")
		gt.False(t, strings.Contains(buf.String(), "pushed"))
	})

	t.Run("failure", func(t *testing.T) {
		var buf bytes.Buffer
		printSummary(&buf, &model.PipelineResult{Repository: "blog"}, errors.New("docker build failed"))
		gt.Equal(t, buf.String(), "✗ deploy of blog failed: docker build failed\n")
	})

	t.Run("nil result", func(t *testing.T) {
		var buf bytes.Buffer
		printSummary(&buf, nil, errors.New("boom"))
		gt.Equal(t, buf.Len(), 0)
	})
}
