package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataMerge(t *testing.T) {
	t.Run("nested mappings merge recursively", func(t *testing.T) {
		base := Metadata{"a": 1, "b": Metadata{"x": 1}}
		overlay := Metadata{"b": Metadata{"y": 2}, "c": 3}

		got, err := base.Merge(overlay)
		require.NoError(t, err)

		want := Metadata{"a": 1, "b": map[string]any{"x": 1, "y": 2}, "c": 3}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("merge mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("overlay leaf wins", func(t *testing.T) {
		got, err := Metadata{"name": "base"}.Merge(Metadata{"name": "overlay"})
		require.NoError(t, err)
		assert.Equal(t, "overlay", got["name"])
	})

	t.Run("mapping replaces scalar", func(t *testing.T) {
		got, err := Metadata{"b": "scalar"}.Merge(Metadata{"b": Metadata{"x": 1}})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"x": 1}, got["b"])
	})

	t.Run("operands are not mutated", func(t *testing.T) {
		base := Metadata{"b": Metadata{"x": 1}}
		overlay := Metadata{"b": Metadata{"y": 2}}

		_, err := base.Merge(overlay)
		require.NoError(t, err)

		assert.Equal(t, Metadata{"b": Metadata{"x": 1}}, base)
		assert.Equal(t, Metadata{"b": Metadata{"y": 2}}, overlay)
	})
}

func TestMergeLayers(t *testing.T) {
	got, err := MergeLayers(
		Metadata{"institution": "source", "shared": "source"},
		Metadata{"shared": "model", "model_only": true},
		nil,
		Metadata{"shared": "variable"},
	)
	require.NoError(t, err)

	assert.Equal(t, "source", got["institution"])
	assert.Equal(t, "variable", got["shared"])
	assert.Equal(t, true, got["model_only"])
}

func TestMetadataClone(t *testing.T) {
	orig := Metadata{"nested": Metadata{"k": "v"}}
	clone := orig.Clone()

	clone["nested"].(map[string]any)["k"] = "changed"
	assert.Equal(t, "v", orig["nested"].(Metadata)["k"])

	assert.Nil(t, Metadata(nil).Clone())
}
