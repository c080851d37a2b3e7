package geo

import (
	"fmt"
	"math/rand/v2"

	"github.com/OCAP2/luxreplay/pkg/core"
)

// PickVariant deterministically chooses one of n visual variants for pos.
// The same position always yields the same variant for a given n, and no
// shared random state is touched. n <= 1 always returns 0.
func PickVariant(pos core.Position, n int) int {
	if n <= 1 {
		return 0
	}
	h := uint64(pos.Hash())
	r := rand.New(rand.NewPCG(h, h^0x9e3779b97f4a7c15))
	return r.IntN(n)
}

// Sprite variant counts of the viewer's city and tree artwork.
const (
	CityVariants = 4
	TreeVariants = 2
)

// CitySprite is the sprite key of a city tile, city<team><variant>.
func CitySprite(team core.Team, pos core.Position) string {
	return fmt.Sprintf("city%d%d", int(team), PickVariant(pos, CityVariants))
}

// TreeSprite is the sprite key of a wood deposit, tree<variant>.
func TreeSprite(pos core.Position) string {
	return fmt.Sprintf("tree%d", PickVariant(pos, TreeVariants))
}
