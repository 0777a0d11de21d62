//go:build integration

package integration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mopaq/mpqset"
	"github.com/mopaq/mpqset/storm"
	"github.com/mopaq/mpqset/storm/stormtest"
)

// Archive paths reused across tests. The set searches them in this
// order: the map archive shadows the expansion, which shadows the base.
const (
	mapArchive       = "mymap.w3x"
	expansionArchive = "war3x.mpq"
	baseArchive      = "war3.mpq"
	localePatch      = "war3patch.mpq"
)

// newGameCodec registers a three-archive game data layout plus a
// locale patch carrying a replacement common.j under the enUS prefix.
func newGameCodec() *stormtest.Codec {
	codec := stormtest.NewCodec()
	codec.Add(mapArchive, stormtest.NewArchive().
		SetFile("war3map.j", []byte("map script")).
		SetFile("war3map.w3i", []byte("map info")))
	codec.Add(expansionArchive, stormtest.NewArchive().
		SetFile(`Scripts\common.j`, []byte("expansion common")).
		SetFile(`Units\ItemData.slk`, []byte("expansion items")))
	codec.Add(baseArchive, stormtest.NewArchive().
		SetFile(`Scripts\common.j`, []byte("base common")).
		SetFile(`Scripts\blizzard.j`, []byte("base blizzard")).
		SetFile(`Units\UnitData.slk`, []byte("base units")))
	codec.Add(localePatch, stormtest.NewArchive().
		SetFile(`enUS\Scripts\common.j`, []byte("patched common")).
		SetFile(`enUS\Scripts\hotfix.j`, []byte("patched hotfix")).
		DisableListfile())
	return codec
}

// newGameSet opens the three game archives in search order and closes
// the set when the test ends.
func newGameSet(tb testing.TB, codec *stormtest.Codec) *mpqset.Set {
	tb.Helper()
	s := mpqset.New(codec)
	for _, path := range []string{mapArchive, expansionArchive, baseArchive} {
		require.NoError(tb, s.AddArchive(path, storm.OpenReadOnly), "add %s", path)
	}
	tb.Cleanup(func() { s.Close() })
	return s
}

// newHotfixArchive builds a one-member archive used to grow a set
// after construction.
func newHotfixArchive() *stormtest.Archive {
	return stormtest.NewArchive().SetFile(`Scripts\hotfix102.j`, []byte("hotfix script"))
}

// gameNames is the merged listing of the three game archives in search
// order.
var gameNames = []string{
	"war3map.j",
	"war3map.w3i",
	"Scripts/common.j",
	"Units/ItemData.slk",
	"Scripts/common.j",
	"Scripts/blizzard.j",
	"Units/UnitData.slk",
}
