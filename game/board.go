package game

import "math/rand"

// GridSize is the board dimension; the board is always GridSize x GridSize.
const GridSize = 6

// Board holds the cell ownership grid, indexed [y][x]. A cell holds at most
// one living player's reference; dead players are not cleared from their
// cell. Guarded by the owning room's mutex.
type Board [GridSize][GridSize]*Player

// InBounds reports whether (x, y) is a valid cell.
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < GridSize && y >= 0 && y < GridSize
}

// At returns the occupant of (x, y), or nil.
func (b *Board) At(x, y int) *Player {
	return b[y][x]
}

// Place puts p on (x, y) and updates the player's position.
func (b *Board) Place(p *Player, x, y int) {
	b[y][x] = p
	p.Pos = &Position{X: x, Y: y}
}

// Clear empties (x, y).
func (b *Board) Clear(x, y int) {
	b[y][x] = nil
}

// RandomEmptyCell samples uniformly random cells until it finds an
// unoccupied one. The board must have at least one empty cell.
func (b *Board) RandomEmptyCell() (int, int) {
	for {
		x, y := rand.Intn(GridSize), rand.Intn(GridSize)
		if b[y][x] == nil {
			return x, y
		}
	}
}
