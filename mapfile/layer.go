package mapfile

// LayerKind identifies one of the raster layers of a map
type LayerKind int

// These are the layers in the order they are stored in the body
const (
	Floors LayerKind = iota
	Objects
	Walls
	Regions
	Effects
	Lighting
	Ambiance
)

func (k LayerKind) String() string {
	strings := map[LayerKind]string{
		Floors:   "floors",
		Objects:  "objects",
		Walls:    "walls",
		Regions:  "regions",
		Effects:  "effects",
		Lighting: "lighting",
		Ambiance: "ambiance",
	}

	return strings[k]
}

// Empty is the normalised id of an empty cell on every layer except floors,
// where an empty cell is id 0
const Empty = -1

type layerInfo struct {
	kind  LayerKind
	width int // bytes per cell
	steps int // cells per tile
	since func(version int) bool
}

var layers = []layerInfo{
	{Floors, 2, 1, always},
	{Objects, 2, 1, always},
	{Walls, 1, 2, always},
	{Regions, 2, 1, after130},
	{Effects, 2, 1, after130},
	{Lighting, 2, 1, since150},
	{Ambiance, 2, 1, since150},
}

func always(int) bool { return true }

func after130(v int) bool { return v > 130 }

func since150(v int) bool { return v >= 150 }

// Layer is one raster of a map in row-major order. Raw holds the ids as
// stored, IDs the normalised ids
type Layer struct {
	Kind LayerKind
	Raw  []uint16
	IDs  []int
}

func normalise(kind LayerKind, raw uint16) int {
	switch {
	case raw == 0 && kind == Floors:
		return 0
	case raw == 0:
		return Empty
	case kind == Walls:
		return int(raw)
	default:
		return int(raw) - 1
	}
}

// WallShape splits a wall id into its encoding type and variant
func WallShape(id int) (kind, variant int) {
	return id / 12, id % 12
}
