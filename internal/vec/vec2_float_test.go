package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2Float_Arithmetic(t *testing.T) {
	a := Vec2Float{X: 3, Y: 4}
	b := Vec2Float{X: 1, Y: -2}

	assert.Equal(t, Vec2Float{X: 4, Y: 2}, a.Add(b))
	assert.Equal(t, Vec2Float{X: 2, Y: 6}, a.Sub(b))
	assert.Equal(t, Vec2Float{X: 6, Y: 8}, a.Mul(2))
	assert.Equal(t, 5.0, a.Length(), "Длина вектора 3-4-5")
	assert.Equal(t, 5.0, a.DistanceTo(Vec2Float{}))
	assert.True(t, Vec2Float{}.IsZero())
	assert.False(t, b.IsZero())
}
