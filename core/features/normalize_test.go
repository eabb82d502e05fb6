package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldMaxima(t *testing.T) {
	all := []Channels{
		{Download: []float64{4, 8}, Upload: []float64{0, 2}, Combined: []float64{4, 10}},
		{Download: []float64{16, 0}, Upload: []float64{1, 1}, Combined: []float64{17, 1}},
	}
	assert.Equal(t, Maxima{Download: 16, Upload: 2, Combined: 17}, FoldMaxima(all))
	assert.Equal(t, Maxima{}, FoldMaxima(nil))
}

func TestNormalize(t *testing.T) {
	c := Channels{Download: []float64{4, 8}, Upload: []float64{0, 2}, Combined: []float64{4, 16}}
	m := Maxima{Download: 8, Upload: 2, Combined: 16}

	norm, err := Normalize(c, m)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1}, norm.Download)
	assert.Equal(t, []float64{0, 1}, norm.Upload)
	assert.Equal(t, []float64{0.25, 1}, norm.Combined)
	assert.Equal(t, []float64{4, 8}, c.Download, "input must not be modified")

	t.Run("IdempotentWithUnitMaxima", func(t *testing.T) {
		again, err := Normalize(norm, Maxima{Download: 1, Upload: 1, Combined: 1})
		require.NoError(t, err)
		assert.Equal(t, norm, again)
	})

	t.Run("ZeroDivisorIsFatal", func(t *testing.T) {
		_, err := Normalize(c, Maxima{Download: 8, Upload: 0, Combined: 16})
		assert.True(t, errors.Is(err, ErrDegenerateCorpus))
		assert.Contains(t, err.Error(), "upload")
	})
}

func TestFlatten(t *testing.T) {
	c := Channels{Download: []float64{1}, Upload: []float64{2}, Combined: []float64{3}}
	assert.Equal(t, []float64{1, 2, 3}, c.Flatten())
}
